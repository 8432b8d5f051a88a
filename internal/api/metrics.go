package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-modbus/internal/bridges/modbus"
	"github.com/nerrad567/gray-logic-modbus/internal/command"
)

// bytesPerMB converts bytes to megabytes.
const bytesPerMB = 1024 * 1024

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string             `json:"timestamp"`
	Version       string             `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Runtime       RuntimeMetrics     `json:"runtime"`
	Modbus        *modbus.Stats      `json:"modbus,omitempty"`
	Processors    []ProcessorMetrics `json:"processors"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// ProcessorMetrics contains per-processor command counters.
type ProcessorMetrics struct {
	ID    string        `json:"id"`
	Bound bool          `json:"bound"`
	Stats command.Stats `json:"stats"`
}

// handleMetrics returns runtime, transport and processor counters.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(s.uptime().Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		Processors: []ProcessorMetrics{},
	}

	if s.modbus != nil {
		stats := s.modbus.Stats()
		metrics.Modbus = &stats
	}

	for _, info := range s.processors.Describe() {
		metrics.Processors = append(metrics.Processors, ProcessorMetrics{
			ID:    info.ID,
			Bound: info.Bound,
			Stats: info.Stats,
		})
	}

	writeJSON(w, http.StatusOK, metrics)
}
