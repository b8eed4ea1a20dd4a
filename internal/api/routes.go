package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealthz)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/stats", s.handleStats)
	v1.GET("/queries", s.handleQueries)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"zone":   s.opts.Zone,
	})
}

// systemStats holds host-level metrics reported alongside DNS counters.
type systemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	MemTotalBytes uint64  `json:"mem_total_bytes"`
	HostUptimeSec uint64  `json:"host_uptime_sec"`
	Goroutines    int     `json:"goroutines"`
	UptimeSec     int64   `json:"uptime_sec"`
}

func (s *Server) handleStats(c *gin.Context) {
	var dns DNSStats
	if s.opts.Stats != nil {
		dns = s.opts.Stats()
	}

	sys := systemStats{
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  int64(time.Since(s.started).Seconds()),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		sys.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		sys.MemUsedBytes = vm.Used
		sys.MemTotalBytes = vm.Total
	}
	if up, err := host.Uptime(); err == nil {
		sys.HostUptimeSec = up
	}

	c.JSON(http.StatusOK, gin.H{
		"dns":    dns,
		"system": sys,
	})
}

func (s *Server) handleQueries(c *gin.Context) {
	if s.opts.QueryLog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "query log disabled"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1..1000"})
			return
		}
		limit = n
	}

	entries, err := s.opts.QueryLog.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query log read failed"})
		return
	}

	type queryRow struct {
		Time     time.Time `json:"time"`
		Client   string    `json:"client"`
		Port     int       `json:"port"`
		ID       uint16    `json:"id"`
		QName    string    `json:"qname"`
		QType    uint16    `json:"qtype"`
		Variant  string    `json:"variant"`
		RCode    uint8     `json:"rcode"`
		Answered bool      `json:"answered"`
	}
	rows := make([]queryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, queryRow{
			Time:     e.Time,
			Client:   e.ClientIP,
			Port:     e.ClientPort,
			ID:       e.ID,
			QName:    e.QName,
			QType:    e.QType,
			Variant:  e.Variant,
			RCode:    e.RCode,
			Answered: e.Answered,
		})
	}
	c.JSON(http.StatusOK, gin.H{"queries": rows, "count": len(rows)})
}
