// Package processing drives one survey from upload to a terminal state.
//
// An Orchestrator moves through idle -> uploading -> processing ->
// {completed | error}. Observers receive a Snapshot on every change. Each
// Orchestrator runs one survey at a time; independent surveys use
// independent Orchestrators, which share nothing.
package processing

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/banshee-data/survey.report/internal/monitoring"
	"github.com/banshee-data/survey.report/internal/surveyapi"
	"github.com/banshee-data/survey.report/internal/timeutil"
)

// Backend is the part of the survey API a processing run needs.
type Backend interface {
	Upload(ctx context.Context, filename string, r io.Reader) (surveyapi.SurveyID, error)
	Status(ctx context.Context, id surveyapi.SurveyID) (surveyapi.StatusReport, error)
}

// Orchestrator owns the state of one processing run at a time.
type Orchestrator struct {
	backend  Backend
	clock    timeutil.Clock
	policy   PollPolicy
	newRunID func() string

	mu        sync.Mutex
	snap      Snapshot
	running   bool
	observers []func(Snapshot)
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the clock used for poll delays.
func WithClock(c timeutil.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithPollPolicy replaces DefaultPollPolicy.
func WithPollPolicy(p PollPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithObserver registers fn to receive every snapshot.
func WithObserver(fn func(Snapshot)) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// New returns an idle Orchestrator.
func New(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  backend,
		clock:    timeutil.RealClock{},
		policy:   DefaultPollPolicy(),
		newRunID: uuid.NewString,
		snap:     Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers fn to receive every subsequent snapshot. Observers run
// synchronously on the processing goroutine and must not block.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// ProcessFile opens path and processes it. A file that cannot be opened
// never starts a run.
func (o *Orchestrator) ProcessFile(ctx context.Context, path string) (surveyapi.SurveyID, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &surveyapi.APIError{Kind: surveyapi.ErrUploadFailure, Err: err}
	}
	defer f.Close()
	return o.Process(ctx, path, f)
}

// Process uploads the file and polls until the backend reports a terminal
// phase. It returns the survey id on completion. Any failure moves the run
// to StateError and is returned; nothing is retried.
func (o *Orchestrator) Process(ctx context.Context, filename string, r io.Reader) (surveyapi.SurveyID, error) {
	if err := o.begin(); err != nil {
		return "", err
	}
	defer o.end()

	log := monitoring.RunLogger{RunID: o.Snapshot().RunID}
	log.Printf("uploading %s", filename)

	id, err := o.backend.Upload(ctx, filename, r)
	if err != nil {
		return "", o.fail(log, err)
	}

	log.SurveyID = id.String()
	o.update(func(s *Snapshot) {
		s.SurveyID = id
		s.State = StateProcessing
	})
	log.Printf("uploaded, polling status")

	if err := o.poll(ctx, log, id); err != nil {
		return id, o.fail(log, err)
	}
	return id, nil
}

func (o *Orchestrator) poll(ctx context.Context, log monitoring.RunLogger, id surveyapi.SurveyID) error {
	start := o.clock.Now()
	delays := o.policy.NewBackOff(o.clock)
	for {
		rep, err := o.backend.Status(ctx, id)
		if err != nil {
			return err
		}
		log.Debugf("status=%s progress=%d", rep.RawPhase, rep.Progress)

		switch rep.Phase {
		case surveyapi.PhaseCompleted:
			o.update(func(s *Snapshot) {
				s.State = StateCompleted
				s.Progress = CompletedProgress
			})
			log.Printf("completed in %s", o.clock.Since(start).Round(time.Millisecond))
			return nil
		case surveyapi.PhaseFailed:
			msg := rep.Error
			if msg == "" {
				msg = MsgProcessingFailed
			}
			return &ProcessingError{SurveyID: id, Message: msg}
		}

		o.update(func(s *Snapshot) {
			if p := min(PollingProgressCap, rep.Progress); p > s.Progress {
				s.Progress = p
			}
		})

		delay := delays.NextBackOff()
		if delay == backoff.Stop {
			return &PollTimeoutError{SurveyID: id, Waited: o.clock.Since(start)}
		}
		if err := timeutil.Wait(ctx, o.clock, delay); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBusy
	}
	o.running = true
	o.mu.Unlock()

	runID := o.newRunID()
	o.update(func(s *Snapshot) {
		*s = Snapshot{RunID: runID, State: StateUploading, Progress: UploadStartProgress}
	})
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
}

func (o *Orchestrator) fail(log monitoring.RunLogger, err error) error {
	msg := errorMessage(err)
	o.update(func(s *Snapshot) {
		s.State = StateError
		s.Err = msg
	})
	log.Printf("failed: %s", msg)
	return err
}

// update applies fn to the snapshot and notifies observers when anything
// changed. Edges outside the state machine are dropped and logged.
func (o *Orchestrator) update(fn func(*Snapshot)) {
	o.mu.Lock()
	prev := o.snap
	next := prev
	fn(&next)
	if next == prev {
		o.mu.Unlock()
		return
	}
	if next.State != prev.State && !ValidTransition(prev.State, next.State) {
		o.mu.Unlock()
		monitoring.Logf("processing: ignoring invalid transition %s -> %s", prev.State, next.State)
		return
	}
	o.snap = next
	observers := make([]func(Snapshot), len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}
