package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/automagik-dev/scribe/internal/remote"
)

// GetSyncStatus derives the coarse status shown to the user: offline when
// sync is disabled or the user is signed out, pending while a cycle is in
// flight or records await a push, error when the store can't be queried or
// the last cycle failed, synced otherwise.
func (o *Orchestrator) GetSyncStatus() Status {
	if !o.enabled || o.auth == nil || !o.auth.IsSignedIn() {
		return StatusOffline
	}

	o.mu.Lock()
	inFlight := o.inFlight
	lastErr := o.lastErr
	o.mu.Unlock()

	if lastErr != nil {
		// An expired credential reads as offline until the user re-auths.
		if errors.Is(lastErr, remote.ErrAuthExpired) {
			return StatusOffline
		}
		return StatusError
	}
	if inFlight {
		return StatusPending
	}

	pending, err := o.store.ListPending()
	if err != nil {
		return StatusError
	}
	if !pending.Empty() {
		return StatusPending
	}
	return StatusSynced
}

// ForceSync sequences a push then a pull under one single-flight claim.
// Re-entry while any cycle is active fails with ErrSyncInFlight. The last
// attempted timestamp is updated regardless of outcome.
func (o *Orchestrator) ForceSync(ctx context.Context) error {
	if !o.enabled || o.remote == nil {
		return ErrSyncDisabled
	}
	if err := o.begin(StatePushing); err != nil {
		return err
	}

	var err error
	defer func() {
		if aerr := o.store.SetLastSyncAttempt(time.Now()); aerr != nil {
			o.logger.Warn("record sync attempt failed", "error", aerr)
		}
		o.end(err)
	}()

	err = o.pushCycle(ctx)
	if err != nil {
		return err
	}
	o.setState(StatePulling)
	err = o.pullCycle(ctx)
	return err
}

// LastAttempt returns when a sync was last attempted, or the zero time.
func (o *Orchestrator) LastAttempt() (time.Time, error) {
	return o.store.LastSyncAttempt()
}
