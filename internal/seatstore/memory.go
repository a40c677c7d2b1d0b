package seatstore

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryCounter is an in-process Counter for single-node deployments and
// tests. Each key gets its own mutex so the read-modify-write in TryDecrement
// is indivisible per course without serializing unrelated courses.
type MemoryCounter struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	down    bool
	log     *slog.Logger
}

type memEntry struct {
	mu    sync.Mutex
	seats int64
}

// NewMemoryCounter constructs an empty MemoryCounter.
func NewMemoryCounter(log *slog.Logger) *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memEntry),
		log:     log,
	}
}

// SetUnavailable toggles simulated store downtime. While down, every operation
// fails with ErrUnavailable and Reachable reports false.
func (c *MemoryCounter) SetUnavailable(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down = down
}

func (c *MemoryCounter) get(courseID string) (*memEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.down {
		return nil, ErrUnavailable
	}
	return c.entries[courseID], nil
}

// Seed implements Counter.
func (c *MemoryCounter) Seed(_ context.Context, courseID string, remaining int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrUnavailable
	}
	if _, ok := c.entries[courseID]; ok {
		return ErrAlreadySeeded
	}
	c.entries[courseID] = &memEntry{seats: remaining}
	return nil
}

// Exists implements Counter.
func (c *MemoryCounter) Exists(_ context.Context, courseID string) (bool, error) {
	ent, err := c.get(courseID)
	if err != nil {
		return false, err
	}
	return ent != nil, nil
}

// TryDecrement implements Counter.
func (c *MemoryCounter) TryDecrement(_ context.Context, courseID string, by int64) (bool, error) {
	ent, err := c.get(courseID)
	if err != nil {
		return false, err
	}
	if ent == nil {
		return false, ErrMissing
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.seats-by < 0 {
		return false, nil
	}
	ent.seats -= by
	return true, nil
}

// Increment implements Counter.
func (c *MemoryCounter) Increment(_ context.Context, courseID string, by int64) error {
	ent, err := c.get(courseID)
	if err != nil {
		return err
	}
	if ent == nil {
		c.log.Warn("increment on missing seat counter, skipping until reconciliation",
			"course_id", courseID)
		return nil
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	ent.seats += by
	return nil
}

// Reseed implements Counter.
func (c *MemoryCounter) Reseed(_ context.Context, courseID string, remaining int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return ErrUnavailable
	}
	if ent, ok := c.entries[courseID]; ok {
		ent.mu.Lock()
		ent.seats = remaining
		ent.mu.Unlock()
		return nil
	}
	c.entries[courseID] = &memEntry{seats: remaining}
	return nil
}

// Reachable implements Counter.
func (c *MemoryCounter) Reachable(context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.down
}

// Value returns the current counter value, or false if none exists.
// Test and reconciliation-audit helper.
func (c *MemoryCounter) Value(courseID string) (int64, bool) {
	c.mu.RLock()
	ent := c.entries[courseID]
	c.mu.RUnlock()
	if ent == nil {
		return 0, false
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.seats, true
}
