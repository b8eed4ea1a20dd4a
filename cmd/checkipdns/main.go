package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ip4live/checkipdns/internal/config"
	"github.com/ip4live/checkipdns/internal/logging"
	"github.com/ip4live/checkipdns/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML configuration file (or set CHECKIPDNS_CONFIG)")
		host       = flag.String("host", "", "Override bind host")
		port       = flag.Int("port", 0, "Override bind port")
		zone       = flag.String("zone", "", "Override the zone name to answer for")
		workers    = flag.Int("workers", -1, "Clamp GOMAXPROCS (can only reduce; -1 means default/auto)")
		noAPI      = flag.Bool("no-api", false, "Disable the management REST API")
		jsonLogs   = flag.Bool("json-logs", false, "Enable JSON structured logging")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(config.ResolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *zone != "" {
		cfg.Zone.Name = *zone
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}
	}
	if *workers >= 0 {
		cfg.Server.Workers = config.WorkerSetting{Mode: config.WorkersFixed, Value: *workers}
	}
	if *noAPI {
		cfg.API.Enabled = false
	}
	if *jsonLogs {
		cfg.Logging.Format = "json"
	}
	if *debug {
		cfg.Logging.Level = "DEBUG"
	}

	logger := logging.Configure(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		IncludePID: cfg.Logging.IncludePID,
	})
	logger.Info("checkipdns starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"zone", cfg.Zone.Name,
		"workers", cfg.Server.Workers.String(),
		"api", cfg.API.Enabled,
	)
	logger.Info("rate limits", "effective", server.FormatRateLimitsLog(server.RateLimitSettingsFromConfig(cfg)))

	runner := server.NewRunner(logger)
	if err := runner.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}
