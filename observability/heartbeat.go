package observability

import (
	"context"
	"log/slog"
	"time"
)

// Stats is a point-in-time view of the session, supplied by the owner.
type Stats struct {
	Tabs        int
	ActiveTab   string
	Generations uint64 // sum of per-tab snapshot generations
}

// Heartbeat periodically logs session stats so long-running sessions leave a
// trace even when no tools are being called.
type Heartbeat struct {
	interval time.Duration
	stats    func() Stats
	log      *slog.Logger
}

// NewHeartbeat creates a Heartbeat. Interval defaults to 60s.
func NewHeartbeat(interval time.Duration, stats func() Stats, log *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Heartbeat{interval: interval, stats: stats, log: log}
}

// Run blocks until ctx is cancelled, emitting one log line per interval.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := h.stats()
			h.log.Info("observability: heartbeat",
				"tabs", s.Tabs, "active_tab", s.ActiveTab, "generations", s.Generations)
		}
	}
}
