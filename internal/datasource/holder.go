package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// Snapshot is an immutable loaded dataset with its load time.
type Snapshot struct {
	Dataset  *models.Dataset
	LoadedAt time.Time
	Source   string
}

// Holder owns the current dataset snapshot. Readers get a pointer to an
// immutable snapshot; Reload replaces it wholesale.
type Holder struct {
	loader Loader

	// reloadMu serializes loads so an older load never replaces a newer one.
	reloadMu sync.Mutex

	mu      sync.RWMutex
	snap    *Snapshot
	lastErr error
}

// NewHolder creates an empty holder backed by loader.
func NewHolder(loader Loader) *Holder {
	return &Holder{loader: loader}
}

// NewStaticHolder wraps an already loaded dataset. Reload is a no-op
// returning the same snapshot.
func NewStaticHolder(ds *models.Dataset) *Holder {
	return &Holder{snap: &Snapshot{Dataset: ds, LoadedAt: time.Now(), Source: "static"}}
}

// Snapshot returns the current snapshot, or ErrNotLoaded.
func (h *Holder) Snapshot() (*Snapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.snap == nil {
		return nil, ErrNotLoaded
	}
	return h.snap, nil
}

// LastError returns the error of the most recent failed load, cleared by
// the next successful one.
func (h *Holder) LastError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}

// Reload loads a fresh dataset. On failure the previous snapshot is kept
// and the error returned. Concurrent calls run one after another.
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	if h.loader == nil {
		return h.Snapshot()
	}

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	ds, err := h.loader.Load(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.lastErr = err
		return nil, err
	}
	h.snap = &Snapshot{Dataset: ds, LoadedAt: time.Now(), Source: h.loader.Source()}
	h.lastErr = nil
	return h.snap, nil
}
