// Package scheduler reloads the dataset on a cron schedule while the
// server runs and notifies listeners of each fresh snapshot.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/fxwatch/internal/datasource"
)

// DefaultTimeout bounds a single scheduled reload.
const DefaultTimeout = 30 * time.Second

// Reloader is satisfied by *datasource.Holder.
type Reloader interface {
	Reload(ctx context.Context) (*datasource.Snapshot, error)
}

// Listener is called after every successful reload.
type Listener func(snap *datasource.Snapshot)

// FailureListener is called after every failed reload.
type FailureListener func(err error)

// Status reports the refresher's run history.
type Status struct {
	Schedule  string    `json:"schedule,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
}

// Refresher runs dataset reloads on a cron schedule.
type Refresher struct {
	cron     *cron.Cron
	reloader Reloader
	logger   *logrus.Logger
	timeout  time.Duration

	mu        sync.RWMutex
	entry     cron.EntryID
	listeners []Listener
	failures  []FailureListener
	status    Status
}

// New creates a refresher. Schedules use the six-field cron format with
// seconds, or descriptors such as "@every 30m".
func New(reloader Reloader, logger *logrus.Logger) *Refresher {
	return &Refresher{
		cron:     cron.New(cron.WithSeconds()),
		reloader: reloader,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
}

// OnReload registers fn to receive every fresh snapshot.
func (r *Refresher) OnReload(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// OnFailure registers fn to receive every reload error.
func (r *Refresher) OnFailure(fn FailureListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, fn)
}

// Schedule registers the reload job. It may be called once.
func (r *Refresher) Schedule(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entry != 0 {
		return fmt.Errorf("refresh already scheduled as %q", r.status.Schedule)
	}

	id, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		_, _ = r.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	r.entry = id
	r.status.Schedule = spec
	return nil
}

// RunNow reloads immediately, records the outcome and fans the snapshot
// out to listeners on success.
func (r *Refresher) RunNow(ctx context.Context) (*datasource.Snapshot, error) {
	started := time.Now()
	snap, err := r.reloader.Reload(ctx)

	r.mu.Lock()
	r.status.Runs++
	r.status.LastRun = started
	if err != nil {
		r.status.Failures++
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
	}
	listeners := append([]Listener(nil), r.listeners...)
	failures := append([]FailureListener(nil), r.failures...)
	r.mu.Unlock()

	if err != nil {
		r.logger.WithError(err).Warn("dataset reload failed, keeping previous snapshot")
		for _, fn := range failures {
			fn(err)
		}
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"source":  snap.Source,
		"records": snap.Dataset.Len(),
		"took":    time.Since(started).Round(time.Millisecond),
	}).Info("dataset reloaded")

	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

// Start starts the cron loop in its own goroutine.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop stops the cron loop and waits for a running reload to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// Status returns a copy of the run history.
func (r *Refresher) Status() Status {
	r.mu.RLock()
	st := r.status
	entry := r.entry
	r.mu.RUnlock()

	if entry != 0 {
		st.NextRun = r.cron.Entry(entry).Next
	}
	return st
}
