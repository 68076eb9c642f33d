// Package linkops suspends, resumes and flaps lab interfaces
package linkops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grafana/eve-link-manager/pkg/resolver"
	"github.com/grafana/eve-link-manager/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	// ErrOperationFailed is returned when the platform rejects or fails a suspend or resume call
	ErrOperationFailed = errors.New("operation failed")
	// ErrInvalidRequest is returned when a request has invalid parameters
	ErrInvalidRequest = errors.New("invalid request")
)

// Switcher changes the connectivity state of an interface endpoint in the platform
type Switcher interface {
	// Suspend disconnects the interface
	Suspend(ctx context.Context, target resolver.Handle) error
	// Resume reconnects the interface
	Resume(ctx context.Context, target resolver.Handle) error
}

// Describer is implemented by Switchers that can describe the action they would perform.
// It is used for reporting in dry run mode.
type Describer interface {
	Describe(kind Kind, target resolver.Handle) string
}

// Recorder receives the outcome of each step executed
type Recorder interface {
	// Step is called after each suspend or resume step, including dry run steps
	Step(kind Kind, err error)
	// Operation is called after a request completes
	Operation(kind Kind, elapsed time.Duration, err error)
}

// Request describes an operation on one or two interface endpoints
type Request struct {
	Kind    Kind
	Targets []resolver.Handle
	// Count is the number of suspend/resume cycles of a flap
	Count int
	// Delay is the time the interface is kept suspended during a flap and between cycles
	Delay time.Duration
}

// Validate checks the request parameters
func (r Request) Validate() error {
	if len(r.Targets) == 0 || len(r.Targets) > 2 {
		return fmt.Errorf("%w: expected 1 or 2 targets got %d", ErrInvalidRequest, len(r.Targets))
	}

	switch r.Kind {
	case Suspend, Resume:
		return nil
	case Flap:
		if r.Count < 1 {
			return fmt.Errorf("%w: flap count must be positive: %d", ErrInvalidRequest, r.Count)
		}
		if r.Delay < 0 {
			return fmt.Errorf("%w: flap delay must be non-negative: %s", ErrInvalidRequest, r.Delay)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operation %s", ErrInvalidRequest, r.Kind)
	}
}

// WaitFunc blocks for the given duration or until the context is done
type WaitFunc func(ctx context.Context, d time.Duration) error

// Wait waits for the duration or the context cancellation
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor executes requests against a Switcher
type Executor struct {
	switcher Switcher
	dryRun   bool
	log      logrus.FieldLogger
	recorder Recorder
	wait     WaitFunc
}

// Option configures an Executor
type Option func(e *Executor)

// WithDryRun replaces every call to the switcher with a log trace
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithLogger sets the logger for the executor
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Executor) {
		e.log = log
	}
}

// WithRecorder sets a recorder for the outcome of the operations
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		e.recorder = r
	}
}

// WithWait replaces the function used for waiting between flap steps
func WithWait(wait WaitFunc) Option {
	return func(e *Executor) {
		e.wait = wait
	}
}

// NewExecutor returns an Executor for the given switcher
func NewExecutor(switcher Switcher, opts ...Option) *Executor {
	e := &Executor{
		switcher: switcher,
		log:      logrus.StandardLogger(),
		wait:     Wait,
	}

	for _, o := range opts {
		o(e)
	}

	return e
}

// DryRun returns true if the executor does not call the switcher
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Execute executes the request. Failures are returned immediately, without retries.
func (e *Executor) Execute(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	start := time.Now()

	var err error
	switch req.Kind {
	case Suspend, Resume:
		err = e.stepAll(ctx, req.Kind, req.Targets)
	case Flap:
		err = e.flap(ctx, req)
	}

	if e.recorder != nil {
		e.recorder.Operation(req.Kind, time.Since(start), err)
	}

	return err
}

func (e *Executor) flap(ctx context.Context, req Request) error {
	for i := 1; i <= req.Count; i++ {
		e.log.WithFields(logrus.Fields{
			"cycle": fmt.Sprintf("%d/%d", i, req.Count),
			"delay": utils.DurationSeconds(req.Delay),
		}).Info("flapping")

		if err := e.stepAll(ctx, Suspend, req.Targets); err != nil {
			return fmt.Errorf("flap %d/%d: %w", i, req.Count, err)
		}

		if err := e.wait(ctx, req.Delay); err != nil {
			return fmt.Errorf("flap %d/%d interrupted with interfaces suspended: %w", i, req.Count, err)
		}

		if err := e.stepAll(ctx, Resume, req.Targets); err != nil {
			return fmt.Errorf("flap %d/%d: %w", i, req.Count, err)
		}

		if i == req.Count {
			break
		}

		if err := e.wait(ctx, req.Delay); err != nil {
			return fmt.Errorf("flap %d/%d interrupted: %w", i, req.Count, err)
		}
	}

	return nil
}

// stepAll applies the step to the targets in order, stopping at the first failure
func (e *Executor) stepAll(ctx context.Context, kind Kind, targets []resolver.Handle) error {
	for _, t := range targets {
		if err := e.step(ctx, kind, t); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor) step(ctx context.Context, kind Kind, target resolver.Handle) error {
	log := e.log.WithFields(logrus.Fields{
		"operation": kind.String(),
		"device":    target.DeviceID,
		"interface": target.InterfaceID,
	})

	if e.dryRun {
		action := fmt.Sprintf("%s %s", kind, target)
		if d, ok := e.switcher.(Describer); ok {
			action = d.Describe(kind, target)
		}
		log.Infof("DRY RUN - would execute: %s", action)
		e.record(kind, nil)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch kind {
	case Suspend:
		err = e.switcher.Suspend(ctx, target)
	case Resume:
		err = e.switcher.Resume(ctx, target)
	default:
		err = fmt.Errorf("%w: %s is not a single step operation", ErrInvalidRequest, kind)
	}

	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", ErrOperationFailed, kind, target, err)
		log.WithError(err).Error("operation failed")
		e.record(kind, err)
		return err
	}

	log.Infof("%s %s", pastTense(kind), target)
	e.record(kind, nil)

	return nil
}

func (e *Executor) record(kind Kind, err error) {
	if e.recorder != nil {
		e.recorder.Step(kind, err)
	}
}

func pastTense(kind Kind) string {
	switch kind {
	case Suspend:
		return "suspended"
	case Resume:
		return "resumed"
	case Flap:
		return "flapped"
	default:
		return kind.String()
	}
}
