package pipeline

import (
	"testing"
	"time"
)

func TestDefaultSchedulerJoinCoversSegmentStops(t *testing.T) {
	cfg := Config{}.withDefaults()
	// stopActive joins each active segment sequentially before schedDone
	// closes, and the overlap cadence keeps two segments active. A scheduler
	// join shorter than that would warn on every healthy stop.
	if cfg.SchedulerJoin < 2*cfg.SegmentJoin {
		t.Errorf("SchedulerJoin %v cannot cover two sequential segment joins of %v", cfg.SchedulerJoin, cfg.SegmentJoin)
	}
}

func TestExplicitSegmentJoinSizesSchedulerJoin(t *testing.T) {
	cfg := Config{SegmentJoin: 8 * time.Second}.withDefaults()
	if cfg.SchedulerJoin < 2*cfg.SegmentJoin {
		t.Errorf("SchedulerJoin %v not scaled to SegmentJoin %v", cfg.SchedulerJoin, cfg.SegmentJoin)
	}
}
