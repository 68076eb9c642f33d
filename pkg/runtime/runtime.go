// Package runtime abstracts the execution environment of the link manager process
package runtime

import (
	"os"
	"strings"
)

// Environment abstracts the execution environment of a process.
// It allows introduction mocks for testing.
type Environment interface {
	// Executor returns a process executor that abstracts os.Exec
	Executor() Executor
	// Signal returns a handler for OS signals
	Signal() Signals
	// Vars returns the environment variables of the process
	Vars() map[string]string
	// Args returns the command line arguments, including the program name
	Args() []string
}

// environment keeps the state of the execution environment
type environment struct {
	executor Executor
	signals  Signals
	vars     map[string]string
	args     []string
}

// DefaultEnvironment returns the default execution environment
func DefaultEnvironment() Environment {
	return &environment{
		executor: DefaultExecutor(),
		signals:  DefaultSignals(),
		vars:     splitVars(os.Environ()),
		args:     os.Args,
	}
}

func (e *environment) Executor() Executor {
	return e.executor
}

func (e *environment) Signal() Signals {
	return e.signals
}

func (e *environment) Vars() map[string]string {
	return e.vars
}

func (e *environment) Args() []string {
	return e.args
}

func splitVars(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		vars[k] = v
	}

	return vars
}
