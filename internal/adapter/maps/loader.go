package maps

import (
	"context"
	"sync"
)

// LoadState is the lifecycle state of an external map-widget resource.
type LoadState int

const (
	StateUnloaded LoadState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

// LoadFunc performs the actual resource load (e.g. fetching the map
// widget bootstrap script).
type LoadFunc func(ctx context.Context) (string, error)

// Loader is a lazily-initialized handle on a shared external resource
// with a single in-flight load guarantee. Concurrent Acquire calls
// during a load all wait on the same attempt; a failed attempt is
// retried by the next Acquire rather than cached forever.
//
// This replaces the usual module-scoped cached promise with an
// injected value so tests can drive the lifecycle explicitly.
type Loader struct {
	mu       sync.Mutex
	state    LoadState
	value    string
	load     LoadFunc
	waiters  []chan struct{}
	refCount int
}

// NewLoader creates an unloaded handle around load.
func NewLoader(load LoadFunc) *Loader {
	return &Loader{load: load}
}

// State reports the current lifecycle state.
func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// RefCount reports the number of outstanding Acquires.
func (l *Loader) RefCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refCount
}

// Acquire returns the loaded resource, loading it on first use. Every
// successful Acquire must be paired with a Release.
func (l *Loader) Acquire(ctx context.Context) (string, error) {
	for {
		l.mu.Lock()
		switch l.state {
		case StateReady:
			l.refCount++
			v := l.value
			l.mu.Unlock()
			return v, nil

		case StateUnloaded, StateFailed:
			l.state = StateLoading
			l.mu.Unlock()

			value, err := l.load(ctx)

			l.mu.Lock()
			if err != nil {
				l.state = StateFailed
			} else {
				l.state = StateReady
				l.value = value
			}
			waiters := l.waiters
			l.waiters = nil
			if err == nil {
				l.refCount++
			}
			l.mu.Unlock()

			for _, w := range waiters {
				close(w)
			}
			if err != nil {
				return "", err
			}
			return value, nil

		case StateLoading:
			w := make(chan struct{})
			l.waiters = append(l.waiters, w)
			l.mu.Unlock()

			select {
			case <-w:
				// Re-check state; the attempt may have failed.
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
}

// Release drops one reference. When the last reference is released the
// resource stays cached; Reset discards it.
func (l *Loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refCount > 0 {
		l.refCount--
	}
}

// Reset discards the cached resource if no references are outstanding.
// Returns false while references remain or a load is in flight.
func (l *Loader) Reset() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refCount > 0 || l.state == StateLoading {
		return false
	}
	l.state = StateUnloaded
	l.value = ""
	return true
}
