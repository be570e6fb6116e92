package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memWatermarkStore struct {
	mu    sync.Mutex
	state *Watermark
}

func (m *memWatermarkStore) Load(ctx context.Context, workflowID string) (*Watermark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memWatermarkStore) Save(ctx context.Context, wm *Watermark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *wm
	m.state = &cp
	return nil
}

func TestInit_NoWatermarkStore(t *testing.T) {
	c, err := New(Config{WorkflowID: "wf1", Schedule: "0 * * * *"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("expected nil error with no watermark store, got %v", err)
	}
}

func TestInit_CatchesUpMissedTicks(t *testing.T) {
	fixedNow := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	store := &memWatermarkStore{state: &Watermark{WorkflowID: "wf1", LastTick: fixedNow.Add(-3 * time.Hour)}}

	var dispatched int
	var mu sync.Mutex
	c, err := New(Config{
		WorkflowID:     "wf1",
		Schedule:       "0 * * * *", // hourly
		WatermarkStore: store,
		Clock:          func() time.Time { return fixedNow },
		CatchupWindow:  6 * time.Hour,
		Dispatch: func(ctx context.Context, workflowID string) error {
			mu.Lock()
			dispatched++
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if dispatched != 3 {
		t.Fatalf("dispatched = %d, want 3 missed hourly ticks (10:00, 11:00, 12:00)", dispatched)
	}
	if !c.LastTick().Equal(fixedNow) {
		t.Errorf("LastTick = %v, want %v", c.LastTick(), fixedNow)
	}
}

func TestInit_LoadErrorIsNonFatal(t *testing.T) {
	c, err := New(Config{
		WorkflowID:     "wf1",
		Schedule:       "0 * * * *",
		WatermarkStore: errStore{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("load error should be non-fatal, got %v", err)
	}
	if !c.LastTick().IsZero() {
		t.Error("watermark should remain unset after a load error")
	}
}

type errStore struct{}

func (errStore) Load(ctx context.Context, workflowID string) (*Watermark, error) {
	return nil, errors.New("disk error")
}
func (errStore) Save(ctx context.Context, wm *Watermark) error { return nil }

func TestNew_InvalidSchedule(t *testing.T) {
	if _, err := New(Config{Schedule: "not a cron expression"}); err == nil {
		t.Fatal("expected parse error")
	}
}
