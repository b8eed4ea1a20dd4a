package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ip4live/checkipdns/internal/api"
	"github.com/ip4live/checkipdns/internal/config"
	"github.com/ip4live/checkipdns/internal/helpers"
	"github.com/ip4live/checkipdns/internal/querylog"
	"github.com/ip4live/checkipdns/internal/responder"
)

// Runner orchestrates server startup, wiring, and shutdown.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a new server runner with the given logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run starts the server with the given configuration and blocks until
// SIGINT/SIGTERM or a fatal error.
func (r *Runner) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return r.RunWithContext(ctx, cfg)
}

// RunWithContext starts the server and blocks until ctx is canceled or a
// server error occurs.
//
// Lifecycle:
//  1. Configure runtime (GOMAXPROCS from the workers setting)
//  2. Open the query log (if enabled)
//  3. Build responder, stats, rate limiter, and UDP server
//  4. Start the UDP server and optionally the management API
//  5. On shutdown, stop servers gracefully with a timeout
func (r *Runner) RunWithContext(ctx context.Context, cfg *config.Config) error {
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	procs := r.configureRuntime(cfg)
	maxConc := calculateMaxConcurrency(cfg, procs)

	var qlog *querylog.Log
	if cfg.QueryLog.Enabled {
		var err error
		qlog, err = querylog.Open(cfg.QueryLog.Path, r.logger)
		if err != nil {
			return err
		}
		defer qlog.Close()
		if r.logger != nil {
			r.logger.Info("query log enabled", "path", cfg.QueryLog.Path)
		}
	}

	resp := responder.New(cfg.Zone.Name, cfg.Zone.TTL)
	stats := NewDNSStats()
	handler := &QueryHandler{
		Logger:    r.logger,
		Responder: resp,
		Stats:     stats,
		QueryLog:  qlog,
	}
	limiter := NewRateLimiter(RateLimitSettingsFromConfig(cfg))

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	if r.logger != nil {
		r.logger.Info("dns listening",
			"addr", addr,
			"zone", resp.Zone(),
			"sockets", max(cfg.Server.Sockets, 1),
			"max_concurrency", maxConc,
		)
	}

	udp := &UDPServer{
		Logger:         r.logger,
		Handler:        handler,
		Limiter:        limiter,
		MaxConcurrency: maxConc,
		Sockets:        cfg.Server.Sockets,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- udp.Run(ctx, addr) }()

	var apiSrv *api.Server
	if cfg.API.Enabled {
		apiSrv = api.New(api.Options{
			Host:     cfg.API.Host,
			Port:     cfg.API.Port,
			Logger:   r.logger,
			Zone:     resp.Zone(),
			Stats:    func() api.DNSStats { return apiStats(stats.Snapshot()) },
			QueryLog: qlog,
		})
		go func() {
			if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
		if r.logger != nil {
			r.logger.Info("api listening", "addr", apiSrv.Addr())
		}
	}

	select {
	case <-ctx.Done():
		// shutdown requested via signal
	case err := <-errCh:
		if err != nil {
			cancelRun()
			return err
		}
	}

	stopTimeout := 5 * time.Second
	_ = udp.Stop(stopTimeout)
	if apiSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// apiStats converts a stats snapshot into the API's view of it.
func apiStats(s DNSStatsSnapshot) api.DNSStats {
	return api.DNSStats{
		QueriesTotal:   s.QueriesTotal,
		Answered:       s.Answered,
		Refused:        s.Refused,
		NoRecords:      s.NoRecords,
		FormatError:    s.FormatError,
		NotImplemented: s.NotImplemented,
		Dropped:        s.Dropped,
		AvgLatencyMs:   s.AvgLatencyMs,
	}
}

// configureRuntime sets GOMAXPROCS based on the workers setting.
// Workers can reduce but never increase parallelism beyond the default.
func (r *Runner) configureRuntime(cfg *config.Config) int {
	baseProcs := runtime.GOMAXPROCS(0)
	if baseProcs <= 0 {
		baseProcs = 1
	}
	desiredProcs := baseProcs

	if cfg.Server.Workers.Mode == config.WorkersFixed {
		w := cfg.Server.Workers.Value
		if w <= 0 {
			w = 1
		}
		if w < desiredProcs {
			desiredProcs = w
		}
	}

	prev := runtime.GOMAXPROCS(desiredProcs)
	actual := runtime.GOMAXPROCS(0)
	if r.logger != nil {
		r.logger.Info("runtime", "gomaxprocs", actual, "prev", prev, "base", baseProcs)
	}
	return actual
}

// calculateMaxConcurrency determines the maximum concurrent request handlers.
func calculateMaxConcurrency(cfg *config.Config, procs int) int {
	maxConc := cfg.Server.MaxConcurrency
	if maxConc <= 0 {
		c := procs
		if c <= 0 {
			c = 1
		}
		maxConc = helpers.ClampInt(c*256, 1, 2048)
	}
	return maxConc
}
