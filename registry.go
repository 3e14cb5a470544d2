package overlaystudio

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/overlaystudio/editor"
)

// Registry holds the live editors, keyed by id. Editors idle for longer than
// the TTL are closed by the sweeper.
type Registry struct {
	mu      sync.RWMutex
	editors map[string]*editor.Editor
	cfg     editor.Config
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewRegistry creates a registry whose editors share cfg.
func NewRegistry(cfg editor.Config, ttl time.Duration) *Registry {
	return &Registry{
		editors: make(map[string]*editor.Editor),
		cfg:     cfg,
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
}

// Create starts a new empty editor.
func (r *Registry) Create() (*editor.Editor, error) {
	e, err := editor.New(uuid.NewString(), r.cfg)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.editors[e.ID] = e
	r.mu.Unlock()
	return e, nil
}

// Get returns the editor with id.
func (r *Registry) Get(id string) (*editor.Editor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.editors[id]
	return e, ok
}

// Remove closes and forgets the editor with id. It reports whether one
// existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.editors[id]
	delete(r.editors, id)
	r.mu.Unlock()
	if ok {
		e.Close()
	}
	return ok
}

// Len returns the number of live editors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.editors)
}

// Sweep closes editors idle since before now minus the TTL and returns how
// many were closed. The registry lock is only held to copy the editor list.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)
	r.mu.RLock()
	editors := make([]*editor.Editor, 0, len(r.editors))
	for _, e := range r.editors {
		editors = append(editors, e)
	}
	r.mu.RUnlock()

	n := 0
	for _, e := range editors {
		if e.LastUsed().Before(cutoff) && r.Remove(e.ID) {
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until Close.
func (r *Registry) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case now := <-ticker.C:
				r.Sweep(now)
			}
		}
	}()
}

// Close stops the sweeper and closes every editor.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
	r.mu.Lock()
	editors := r.editors
	r.editors = make(map[string]*editor.Editor)
	r.mu.Unlock()
	for _, e := range editors {
		e.Close()
	}
}
