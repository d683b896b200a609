// Package syncer is the synchronization core: it tracks which local records
// diverged from the remote store, pushes and pulls them, resolves conflicts,
// and reports a coarse sync status to the rest of the application.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/automagik-dev/scribe/internal/auth"
	"github.com/automagik-dev/scribe/internal/remote"
	"github.com/automagik-dev/scribe/internal/store"
)

// State is the orchestrator's current phase.
type State string

const (
	StateIdle    State = "idle"
	StatePushing State = "pushing_to_cloud"
	StatePulling State = "pulling_from_cloud"
	StateError   State = "error"
)

// Status is the coarse sync status shown to the user.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusPending Status = "pending"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

var (
	// ErrSyncInFlight is returned when a sync is requested while another
	// cycle is still running. At most one cycle executes at a time.
	ErrSyncInFlight = errors.New("sync already in progress")
	// ErrSyncDisabled is returned when sync is off or no remote is wired.
	ErrSyncDisabled = errors.New("sync disabled")
)

// Options configures the orchestrator. Store is required; Remote may be nil
// when the user is signed out, in which case sync calls fail with
// ErrSyncDisabled but local operation is unaffected.
type Options struct {
	Store   *store.DB
	Remote  remote.Store
	Auth    auth.Provider
	Logger  *slog.Logger
	Enabled bool
	// Debounce delays background pushes after a change notification so a
	// burst of edits produces one push cycle.
	Debounce time.Duration
}

// Orchestrator is the sync state machine. A single instance serves the
// whole process; its in-flight flag enforces single-flight sync cycles.
type Orchestrator struct {
	store    *store.DB
	remote   remote.Store
	auth     auth.Provider
	logger   *slog.Logger
	enabled  bool
	debounce time.Duration

	mu          sync.Mutex
	state       State
	inFlight    bool
	lastErr     error
	initialized bool

	changes chan struct{}
}

// New creates the orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	return &Orchestrator{
		store:    opts.Store,
		remote:   opts.Remote,
		auth:     opts.Auth,
		logger:   logger,
		enabled:  opts.Enabled,
		debounce: debounce,
		state:    StateIdle,
		changes:  make(chan struct{}, 1),
	}
}

// Initialize brings the sync layer up. Idempotent. The local store must work
// with no network; remote setup and the initial pull are attempted only when
// sync is enabled and the user is signed in, and a failure there degrades to
// offline operation instead of propagating.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.initialized {
		o.mu.Unlock()
		return nil
	}
	o.initialized = true
	o.mu.Unlock()

	if _, err := o.store.ListPending(); err != nil {
		return err
	}

	if !o.syncReady() {
		return nil
	}

	if err := o.SyncFromCloud(ctx); err != nil {
		o.logger.Warn("initial pull failed; continuing offline", "error", err)
		o.clearError()
	}
	return nil
}

// State returns the orchestrator's current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// syncReady reports whether a sync cycle can be attempted at all.
func (o *Orchestrator) syncReady() bool {
	return o.enabled && o.remote != nil && o.auth != nil && o.auth.IsSignedIn()
}

// begin claims the single-flight slot and enters the given phase. A prior
// error state is cleared: errors are not sticky across invocations.
func (o *Orchestrator) begin(s State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return ErrSyncInFlight
	}
	o.inFlight = true
	o.state = s
	o.lastErr = nil
	return nil
}

// end releases the single-flight slot, recording the cycle outcome.
func (o *Orchestrator) end(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false
	if err != nil && !errors.Is(err, context.Canceled) {
		o.state = StateError
		o.lastErr = err
		return
	}
	o.state = StateIdle
	o.lastErr = nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) clearError() {
	o.mu.Lock()
	o.state = StateIdle
	o.lastErr = nil
	o.mu.Unlock()
}

// NotifyChange signals that a local record was mutated. Never blocks; a
// burst of notifications coalesces into one queued push.
func (o *Orchestrator) NotifyChange() {
	select {
	case o.changes <- struct{}{}:
	default:
	}
}

// Run drains the outbound work queue, pushing pending records after each
// change notification. Blocks until the context is cancelled. Mutating
// callers only signal the queue and are never blocked on a push.
func (o *Orchestrator) Run(ctx context.Context) error {
	timer := time.NewTimer(o.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-o.changes:
			timer.Reset(o.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			if !o.syncReady() {
				continue
			}
			if err := o.SyncToCloud(ctx); err != nil {
				if errors.Is(err, ErrSyncInFlight) {
					// A manual sync is running; it will pick the records up,
					// or the next notification will.
					o.NotifyChange()
					continue
				}
				o.logger.Warn("background push failed", "error", err)
			}
		}
	}
}
