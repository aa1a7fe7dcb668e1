// sweep.go - Periodic purge of inactive storage.
package server

import (
	"context"
	"log"
	"time"
)

// SweeperConfig holds configuration for the retention sweeper.
type SweeperConfig struct {
	Interval          time.Duration
	InactivityMinutes int
	Activity          *ActivityTracker
	Index             *FileIndex
}

// StartSweeper runs the retention sweep on a fixed interval until ctx is
// cancelled. Each tick it purges all stored files if the service has been
// idle past the threshold. It is started once; the sweep never runs
// concurrently with itself.
func StartSweeper(ctx context.Context, cfg SweeperConfig) {
	log.Printf("service=sweeper msg=%q interval=%s inactivity_mins=%d",
		"starting", cfg.Interval, cfg.InactivityMinutes)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sweeper msg=%q", "shutting_down")
			return
		case <-ticker.C:
			runSweep(ctx, cfg)
		}
	}
}

// runSweep performs one sweep decision. When the idle threshold is reached it
// first touches the activity tracker, so the sweep fires once per idle
// period rather than on every tick while the service stays idle, then clears
// the index.
func runSweep(ctx context.Context, cfg SweeperConfig) {
	idle := cfg.Activity.MinutesSinceLastActivity()
	if idle < cfg.InactivityMinutes {
		return
	}

	// Reset the clock before purging; this is the debounce.
	cfg.Activity.Touch()

	start := time.Now()
	deleted, err := cfg.Index.ClearAll(ctx)
	if err != nil {
		log.Printf("service=sweeper msg=%q deleted=%d err=%v", "sweep_incomplete", deleted, err)
	} else {
		log.Printf("service=sweeper msg=%q deleted=%d idle_mins=%d duration_ms=%d",
			"sweep_complete", deleted, idle, time.Since(start).Milliseconds())
	}
	GetMetrics().RecordSweep(int64(deleted))
}
