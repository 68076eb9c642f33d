// Package batch runs an operation over the interfaces listed in a directive file
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/resolver"
	"github.com/grafana/eve-link-manager/pkg/topology"
	"github.com/sirupsen/logrus"
)

// Status is the outcome of a directive line
type Status int

// Line statuses
const (
	Succeeded Status = iota + 1
	Malformed
	Unresolved
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Malformed:
		return "malformed"
	case Unresolved:
		return "unresolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// LineResult is the outcome of processing one directive line
type LineResult struct {
	Line    int
	Text    string
	Status  Status
	Targets []resolver.Handle
	Err     error
}

// Report contains the results of a batch, in file order
type Report struct {
	Kind    linkops.Kind
	Results []LineResult
}

// Total returns the number of directive lines processed. Comments and blank lines are not counted.
func (r *Report) Total() int {
	return len(r.Results)
}

// Succeeded returns the number of lines whose operation succeeded
func (r *Report) Succeeded() int {
	return r.count(Succeeded)
}

// Failed returns the number of lines that failed for any reason
func (r *Report) Failed() int {
	return r.Total() - r.Succeeded()
}

// Executed returns the number of lines that reached the execution of the operation
func (r *Report) Executed() int {
	return r.count(Succeeded) + r.count(Failed)
}

// Count returns the number of lines with the given status
func (r *Report) count(s Status) int {
	n := 0
	for _, l := range r.Results {
		if l.Status == s {
			n++
		}
	}

	return n
}

// Options defines the operation applied to every line of a batch
type Options struct {
	Kind  linkops.Kind
	Count int
	Delay time.Duration
}

// Runner runs batches against a topology snapshot
type Runner struct {
	snapshot *topology.Snapshot
	executor *linkops.Executor
	log      logrus.FieldLogger
}

// NewRunner returns a Runner
func NewRunner(snapshot *topology.Snapshot, executor *linkops.Executor, log logrus.FieldLogger) *Runner {
	return &Runner{
		snapshot: snapshot,
		executor: executor,
		log:      log,
	}
}

// RunFile runs the batch in the given file. It returns an error if the file cannot be read
// or the batch is interrupted.
func (b *Runner) RunFile(ctx context.Context, path string, opts Options) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return b.Run(ctx, f, opts)
}

// Run runs the batch read from the reader. Each line is processed in order and its failures
// are recorded in the report without interrupting the batch. If the context is canceled the
// remaining lines are not processed and the partial report is returned with the cause.
func (b *Runner) Run(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	directives, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := &Report{Kind: opts.Kind, Results: make([]LineResult, 0, len(directives))}
	for _, d := range directives {
		if ctx.Err() != nil {
			return report, fmt.Errorf("batch interrupted before line %d: %w", d.Line, context.Cause(ctx))
		}

		result := b.runDirective(ctx, d, opts)
		b.logResult(result)
		report.Results = append(report.Results, result)
	}

	return report, nil
}

func (b *Runner) runDirective(ctx context.Context, d Directive, opts Options) LineResult {
	result := LineResult{Line: d.Line, Text: d.Text}

	if d.Err != nil {
		result.Status = Malformed
		result.Err = d.Err
		return result
	}

	for _, ref := range d.Refs {
		handle, err := resolver.Resolve(b.snapshot, ref.Device, ref.Interface)
		if err != nil {
			result.Status = Unresolved
			result.Err = fmt.Errorf("line %d: %w", d.Line, err)
			return result
		}
		result.Targets = append(result.Targets, handle)
	}

	req := linkops.Request{
		Kind:    opts.Kind,
		Targets: result.Targets,
		Count:   opts.Count,
		Delay:   opts.Delay,
	}

	if err := b.executor.Execute(ctx, req); err != nil {
		result.Status = Failed
		result.Err = fmt.Errorf("line %d: %w", d.Line, err)
		return result
	}

	result.Status = Succeeded

	return result
}

func (b *Runner) logResult(result LineResult) {
	log := b.log.WithFields(logrus.Fields{
		"line":   result.Line,
		"status": result.Status.String(),
	})

	if result.Err != nil {
		log.WithError(result.Err).Errorf("Line %d: failed (for %s)", result.Line, result.Text)
		return
	}

	log.Infof("Line %d: done (for %s)", result.Line, result.Text)
}

// Err returns an error summarizing the failures of the batch, or nil if all lines succeeded
func (r *Report) Err() error {
	if r.Failed() == 0 {
		return nil
	}

	errs := make([]error, 0, r.Failed())
	for _, l := range r.Results {
		if l.Err != nil {
			errs = append(errs, l.Err)
		}
	}

	return fmt.Errorf("%d of %d batch operations failed: %w", r.Failed(), r.Total(), errors.Join(errs...))
}
