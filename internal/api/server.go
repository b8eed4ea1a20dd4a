// Package api provides the read-only management REST API for checkipdns.
// It exposes health, statistics, and query log endpoints via a Gin-based
// HTTP server.
//
// Security note: do not expose the API to untrusted networks; it carries
// client addresses from the query log.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ip4live/checkipdns/internal/querylog"
)

// DNSStats is the API's view of the DNS server counters.
type DNSStats struct {
	QueriesTotal   uint64  `json:"queries_total"`
	Answered       uint64  `json:"answered"`
	Refused        uint64  `json:"refused"`
	NoRecords      uint64  `json:"no_records"`
	FormatError    uint64  `json:"format_error"`
	NotImplemented uint64  `json:"not_implemented"`
	Dropped        uint64  `json:"dropped"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
}

// Options configures the API server.
type Options struct {
	Host     string
	Port     int
	Logger   *slog.Logger
	Zone     string         // zone name reported in /healthz
	Stats    func() DNSStats // snapshot provider, may be nil
	QueryLog *querylog.Log  // may be nil when the query log is disabled
}

// Server is the management REST API server.
type Server struct {
	opts       Options
	engine     *gin.Engine
	httpServer *http.Server
	started    time.Time
}

// New builds the API server and registers its routes.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(SlogRequestLogger(opts.Logger))

	s := &Server{opts: opts, engine: engine, started: time.Now()}
	s.registerRoutes()

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Engine exposes the underlying Gin engine, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
