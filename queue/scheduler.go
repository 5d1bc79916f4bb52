// Package queue schedules per-account character creation batches against the
// rate-limited provisioning API. A single background worker drains a FIFO of
// batches so the provider-facing request rate stays predictable: one batch
// runs to completion (or cancellation) before the next begins, and attempts
// within a batch are strictly sequential.
package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-launcher-auth/internal/config"
	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
	"github.com/jrsteele09/go-launcher-auth/provision"
)

// rateLimitCode is the provider's "too many accounts created" signal, which
// shows up either as an HTTP 409 or as this phrase in the response body.
const rateLimitCode = "too many accounts"

// Creator is the slice of the provisioning client the scheduler needs.
type Creator interface {
	CreateCharacterSlot(ctx context.Context, sessionToken string) ([]provision.CharacterSlot, error)
}

// Batch is one unit of queue work: bring a single account up to the target
// slot count. A batch is consumed whole; a cancelled batch is dropped, never
// partially re-queued.
type Batch struct {
	AccountID    string
	DisplayName  string
	SessionToken string
	Remaining    int
	BatchSize    int
	BatchWindow  time.Duration
}

// Scheduler owns the queue state: the set of queued account ids (at most one
// outstanding batch per account) and the pending-batch counter. Both are
// mutated only under the scheduler's mutex; producers may enqueue
// concurrently while the single worker drains.
type Scheduler struct {
	cfg       config.QueueConfig
	creator   Creator
	observers Observers
	sleep     func(ctx context.Context, d time.Duration) bool

	mu            sync.Mutex
	queued        map[string]struct{}
	batches       []Batch
	pending       int
	workerRunning bool
	closed        bool
	runCtx        context.Context
	runCancel     context.CancelFunc
}

// SchedulerOption modifies a Scheduler instance.
type SchedulerOption func(*Scheduler)

// WithSleep replaces the delay function (primarily for testing). The
// function must return false when the wait was cancelled.
func WithSleep(sleep func(ctx context.Context, d time.Duration) bool) SchedulerOption {
	return func(s *Scheduler) {
		s.sleep = sleep
	}
}

// NewScheduler creates an idle scheduler. The worker starts lazily on the
// first accepted enqueue.
func NewScheduler(cfg config.QueueConfig, creator Creator, observers Observers, options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		creator:   creator,
		observers: observers,
		sleep:     sleepContext,
		queued:    make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Enqueue requests that an account be brought up to the character capacity.
// It reports false, with no queue-state change, when the account already has
// an outstanding batch, when the account is already at capacity, or when the
// scheduler has been closed. A false result is a no-op signal, not an error.
func (s *Scheduler) Enqueue(accountID, displayName, sessionToken string, currentCount, batchSize int, batchWindow time.Duration) bool {
	capacity := s.cfg.GetCharacterCapacity()
	remaining := capacity - currentCount
	if remaining <= 0 {
		s.emitStatus(displayName + " is already at capacity")
		return false
	}
	if batchSize <= 0 {
		batchSize = s.cfg.GetDefaultBatchSize()
	}
	if batchWindow <= 0 {
		batchWindow = s.cfg.GetDefaultBatchWindow()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, alreadyQueued := s.queued[accountID]; alreadyQueued {
		s.mu.Unlock()
		s.emitStatus(displayName + " is already queued")
		return false
	}

	s.queued[accountID] = struct{}{}
	s.batches = append(s.batches, Batch{
		AccountID:    accountID,
		DisplayName:  displayName,
		SessionToken: sessionToken,
		Remaining:    remaining,
		BatchSize:    batchSize,
		BatchWindow:  batchWindow,
	})
	s.pending++
	pending := s.pending

	if s.runCtx == nil || s.runCtx.Err() != nil {
		s.runCtx, s.runCancel = context.WithCancel(context.Background())
	}
	if !s.workerRunning {
		s.workerRunning = true
		go s.run(s.runCtx)
	}
	s.mu.Unlock()

	log.Info().Str("component", "queue").Str("account", accountID).Int("remaining", remaining).Msg("batch queued")
	s.emitPendingCount(pending)
	s.emitStatus(displayName + " queued")
	return true
}

// Pending returns the number of batches that have been accepted but not yet
// completed, including the one currently running.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// IsQueued reports whether the account currently has an outstanding batch.
func (s *Scheduler) IsQueued(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, queued := s.queued[accountID]
	return queued
}

// CancelAll discards every queued batch and signals the in-progress batch to
// stop at its next checkpoint. Cancellation is global, not per account.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	s.batches = nil
	s.queued = make(map[string]struct{})
	changed := s.pending != 0
	s.pending = 0
	cancel := s.runCancel
	s.runCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if changed {
		s.emitPendingCount(0)
	}
	s.emitStatus("creation queue cancelled")
	log.Info().Str("component", "queue").Msg("all batches cancelled")
}

// Close cancels outstanding work and rejects further enqueues.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.CancelAll()
}

// run is the single worker loop. It exits when the queue is drained or the
// run context is cancelled; the next accepted enqueue starts a fresh worker.
func (s *Scheduler) run(ctx context.Context) {
	for {
		s.mu.Lock()
		if ctx.Err() != nil {
			s.workerRunning = false
			// A batch may have been accepted after cancellation, against the
			// fresh run context. Hand over to a new worker for it.
			if len(s.batches) > 0 && s.runCtx != nil && s.runCtx.Err() == nil {
				s.workerRunning = true
				go s.run(s.runCtx)
			}
			s.mu.Unlock()
			return
		}
		if len(s.batches) == 0 {
			s.workerRunning = false
			s.mu.Unlock()
			return
		}
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()

		s.processBatch(ctx, batch)
	}
}

// processBatch creates the batch's remaining slots one at a time, retrying
// each slot up to the attempt limit, pausing for the batch window whenever a
// window's worth of creations has landed, and checking for cancellation
// before every attempt and around every delay.
func (s *Scheduler) processBatch(ctx context.Context, batch Batch) {
	created := 0
	skipped := 0
	inWindow := 0
	maxAttempts := s.cfg.GetMaxCreateAttempts()

	s.emitStatus("creating characters for " + batch.DisplayName)

	for slot := 0; slot < batch.Remaining; slot++ {
		if ctx.Err() != nil {
			return
		}

		slots, ok := s.createWithRetry(ctx, batch, maxAttempts)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			skipped++
			s.emitStatus("skipped a character slot for " + batch.DisplayName)
			continue
		}

		created++
		inWindow++
		if s.observers.OnCharacterCreated != nil {
			s.observers.OnCharacterCreated(batch.AccountID, slots)
		}
		s.emitStatus("created character slot for " + batch.DisplayName)

		// Throttle sustained creation rate: after a window's worth of
		// successes, pause for the full window before continuing. No
		// trailing pause when the batch is done.
		if inWindow >= batch.BatchSize && slot+1 < batch.Remaining {
			s.emitStatus("batch window reached for " + batch.DisplayName + ", pausing")
			if !s.sleep(ctx, batch.BatchWindow) {
				return
			}
			inWindow = 0
		}
	}

	s.finishBatch(batch, created, skipped)
}

// createWithRetry attempts a single slot creation up to maxAttempts times.
// Rate-limited failures wait out the batch window (the provider's own
// cool-down); other failures wait a short fixed delay. It reports ok=false
// when every attempt failed, which skips the slot without failing the batch.
func (s *Scheduler) createWithRetry(ctx context.Context, batch Batch, maxAttempts int) ([]provision.CharacterSlot, bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}

		slots, err := s.creator.CreateCharacterSlot(ctx, batch.SessionToken)
		if err == nil {
			return slots, true
		}

		delay := s.cfg.GetCreateRetryDelay()
		if isRateLimited(err) {
			delay = batch.BatchWindow
			s.emitStatus(batch.DisplayName + " is rate limited, backing off")
		}
		log.Warn().Str("component", "queue").Str("account", batch.AccountID).Int("attempt", attempt).Err(err).Msg("character creation failed")

		if attempt < maxAttempts {
			if !s.sleep(ctx, delay) {
				return nil, false
			}
		}
	}
	return nil, false
}

// finishBatch retires the batch from the queue state unless a cancellation
// already cleared it, then reports completion.
func (s *Scheduler) finishBatch(batch Batch, created, skipped int) {
	s.mu.Lock()
	_, stillQueued := s.queued[batch.AccountID]
	if stillQueued {
		delete(s.queued, batch.AccountID)
		s.pending--
	}
	pending := s.pending
	s.mu.Unlock()

	if !stillQueued {
		return
	}

	if s.observers.OnBatchCompleted != nil {
		s.observers.OnBatchCompleted(batch.AccountID, created, skipped)
	}
	s.emitPendingCount(pending)
	s.emitStatus("finished creating characters for " + batch.DisplayName)
	log.Info().Str("component", "queue").Str("account", batch.AccountID).Int("created", created).Int("skipped", skipped).Msg("batch completed")
}

func (s *Scheduler) emitStatus(message string) {
	if s.observers.OnStatus != nil {
		s.observers.OnStatus(message)
	}
}

func (s *Scheduler) emitPendingCount(pending int) {
	if s.observers.OnPendingCountChanged != nil {
		s.observers.OnPendingCountChanged(pending)
	}
}

// isRateLimited classifies a creation failure as the provider's cool-down
// signal: HTTP 409 or the "too many accounts" code in the body.
func isRateLimited(err error) bool {
	var protoErr *errorsx.ProtocolError
	if !errorsx.As(err, &protoErr) {
		return false
	}
	if protoErr.Status == 409 {
		return true
	}
	return strings.Contains(strings.ToLower(protoErr.Body), rateLimitCode)
}

// sleepContext waits for the duration or the context, whichever ends first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
