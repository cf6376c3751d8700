package ratelimit

import (
	"context"
	"sync"
	"time"
)

// WindowState is what a store reports after a check
type WindowState struct {
	Allowed bool
	Count   int       // timestamps inside the window after the check
	Oldest  time.Time // earliest timestamp still inside the window, zero when empty
}

// WindowStore persists sliding windows. Acquire must run prune, check and append as one
// atomic step per key.
type WindowStore interface {
	Acquire(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error)
	Peek(ctx context.Context, key string, now time.Time, window time.Duration) (WindowState, error)
	Reset(ctx context.Context, key string) error
}

type slidingWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// prune drops entries with now - t >= window. Timestamps are kept in ascending order.
func (w *slidingWindow) prune(now time.Time, window time.Duration) {
	i := 0
	for i < len(w.timestamps) && now.Sub(w.timestamps[i]) >= window {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

func (w *slidingWindow) state(allowed bool) WindowState {
	st := WindowState{Allowed: allowed, Count: len(w.timestamps)}
	if len(w.timestamps) > 0 {
		st.Oldest = w.timestamps[0]
	}
	return st
}

// MemoryWindowStore keeps windows in process memory with one lock per key
type MemoryWindowStore struct {
	mu      sync.RWMutex
	windows map[string]*slidingWindow
}

// NewMemoryWindowStore creates an empty store
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		windows: make(map[string]*slidingWindow),
	}
}

func (s *MemoryWindowStore) window(key string) *slidingWindow {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[key]; !ok {
		w = &slidingWindow{}
		s.windows[key] = w
	}
	return w
}

// Acquire records now for key if fewer than limit timestamps remain in the window
func (s *MemoryWindowStore) Acquire(_ context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	w := s.window(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, window)
	if len(w.timestamps) >= limit {
		return w.state(false), nil
	}
	// Clock skew can move now behind the newest entry; keep the slice sorted.
	if n := len(w.timestamps); n > 0 && now.Before(w.timestamps[n-1]) {
		now = w.timestamps[n-1]
	}
	w.timestamps = append(w.timestamps, now)
	return w.state(true), nil
}

// Peek reports the window without recording anything
func (s *MemoryWindowStore) Peek(_ context.Context, key string, now time.Time, window time.Duration) (WindowState, error) {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return WindowState{Allowed: true}, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now, window)
	return w.state(true), nil
}

// Reset forgets key
func (s *MemoryWindowStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// Len returns the number of tracked keys
func (s *MemoryWindowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.windows)
}
