package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// ErrSourceNotFound is returned when a rate source name is not registered.
type ErrSourceNotFound struct {
	Name string
}

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("rate source %q not registered", e.Name)
}

// Registry is a thread-safe set of latest-rate sources in priority order.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]RateSource
	order   []string // registration order = fallback priority
}

// NewRegistry creates a new empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]RateSource)}
}

// Register adds a source. Duplicate names overwrite the previous entry
// but keep its priority.
func (r *Registry) Register(src RateSource) error {
	name := src.Name()
	if name == "" {
		return errors.New("rate source name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[name]; !ok {
		r.order = append(r.order, name)
	}
	r.sources[name] = src
	return nil
}

// Get returns a source by name.
func (r *Registry) Get(name string) (RateSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[name]
	if !ok {
		return nil, &ErrSourceNotFound{Name: name}
	}
	return src, nil
}

// Names returns registered source names in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Latest fetches today's record from the named source.
func (r *Registry) Latest(ctx context.Context, name string) (*models.HistoricalRecord, error) {
	src, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	rec, err := src.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	return rec, nil
}

// LatestWithFallback tries the preferred source first, then the others in
// priority order. It returns the record with the name of the source that
// produced it.
func (r *Registry) LatestWithFallback(ctx context.Context, preferred string) (*models.HistoricalRecord, string, error) {
	names := r.Names()
	if preferred != "" {
		if _, err := r.Get(preferred); err != nil {
			return nil, "", err
		}
		ordered := []string{preferred}
		for _, n := range names {
			if n != preferred {
				ordered = append(ordered, n)
			}
		}
		names = ordered
	}
	if len(names) == 0 {
		return nil, "", errors.New("no rate sources registered")
	}

	var errs []error
	for _, name := range names {
		rec, err := r.Latest(ctx, name)
		if err == nil {
			return rec, name, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("all rate sources failed: %w", errors.Join(errs...))
}
