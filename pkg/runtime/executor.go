package runtime

import (
	"context"
	"os/exec"
)

// Executor offers methods for running processes
type Executor interface {
	// Exec executes a process and waits for its completion, returning
	// the combined stdout and stderr. The process is killed if the context
	// is canceled before it completes.
	Exec(ctx context.Context, cmd string, args ...string) ([]byte, error)
}

// An instance of an executor that uses the os/exec package for
// executing processes
type executor struct{}

// DefaultExecutor returns a default executor
func DefaultExecutor() Executor {
	return &executor{}
}

// Exec executes a process and returns the combined stdout and stderr
func (e *executor) Exec(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, cmd, args...).CombinedOutput()
}
