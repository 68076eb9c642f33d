package runtime

import (
	"context"
	"os"
	"strings"
	"sync"
)

// FakeExecutor is an instance of a ProcessExecutor that keeps the history
// of commands for inspection and returns the predefined results.
// Even when it allows multiple invocations to Exec, it only allows
// setting one err and output which are returned on each call. If different
// results are needed for each invocation, [CallbackExecutor] may a
// better alternative
type FakeExecutor struct {
	mtx         sync.Mutex
	invocations int
	commands    []string
	err         error
	output      []byte
}

// NewFakeExecutor creates a new instance of a ProcessExecutor
func NewFakeExecutor(output []byte, err error) *FakeExecutor {
	return &FakeExecutor{
		err:    err,
		output: output,
	}
}

func (p *FakeExecutor) updateHistory(cmd string, args ...string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	cmdLine := strings.TrimSpace(cmd + " " + strings.Join(args, " "))
	p.commands = append(p.commands, cmdLine)
	p.invocations++
}

// Exec mocks the executing of the process according to
func (p *FakeExecutor) Exec(_ context.Context, cmd string, args ...string) ([]byte, error) {
	p.updateHistory(cmd, args...)
	return p.output, p.err
}

// Invoked indicates if the Exec command was invoked at least once
func (p *FakeExecutor) Invoked() bool {
	return p.Invocations() > 0
}

// Cmd returns the value of the last command passed to the last invocation
func (p *FakeExecutor) Cmd() string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.invocations == 0 {
		return ""
	}
	return p.commands[p.invocations-1]
}

// CmdHistory returns the history of commands executed. If Invocations is 0, returns
// an empty array
func (p *FakeExecutor) CmdHistory() []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return append([]string{}, p.commands...)
}

// Invocations returns the number of invocations to the Exec function
func (p *FakeExecutor) Invocations() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.invocations
}

// Reset clears the history of invocations to the FakeProcessExecutor
func (p *FakeExecutor) Reset() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.invocations = 0
	p.commands = []string{}
}

// ExecCallback defines a function that can receive the forward of an Exec invocation
// The function must return the output of the invocation and the execution error, if any
type ExecCallback func(cmd string, args ...string) ([]byte, error)

// CallbackExecutor is fake process Executor that forwards the invocations
// to a function that can dynamically return error and output.
type CallbackExecutor struct {
	FakeExecutor
	callback ExecCallback
}

// Exec forwards invocation to the callback
func (c *CallbackExecutor) Exec(_ context.Context, cmd string, args ...string) ([]byte, error) {
	// update command history but ignore outputs
	c.FakeExecutor.updateHistory(cmd, args...)
	// return outputs from callback
	return c.callback(cmd, args...)
}

// NewCallbackExecutor returns an instance of a CallbackExecutor
func NewCallbackExecutor(callback ExecCallback) *CallbackExecutor {
	return &CallbackExecutor{
		callback: callback,
	}
}

// FakeSignal implements a fake signal handling for testing
type FakeSignal struct {
	channel chan os.Signal
}

// NewFakeSignal returns a FakeSignal
func NewFakeSignal() *FakeSignal {
	return &FakeSignal{
		channel: make(chan os.Signal),
	}
}

// Notify implements Signal's interface Notify method
func (f *FakeSignal) Notify(_ ...os.Signal) <-chan os.Signal {
	return f.channel
}

// Reset implements Signal's interface Reset method. It is noop.
func (f *FakeSignal) Reset(_ ...os.Signal) {
	// noop
}

// Send sends the given signal to the signal notification channel if the signal was
// previously specified in a call to Notify
func (f *FakeSignal) Send(signal os.Signal) {
	f.channel <- signal
}

// FakeRuntime holds the state of a fake runtime for testing
type FakeRuntime struct {
	FakeArgs     []string
	FakeVars     map[string]string
	FakeExecutor *FakeExecutor
	FakeSignal   *FakeSignal
}

// NewFakeRuntime creates a default FakeRuntime
func NewFakeRuntime(args []string, vars map[string]string) *FakeRuntime {
	return &FakeRuntime{
		FakeArgs:     args,
		FakeVars:     vars,
		FakeExecutor: NewFakeExecutor(nil, nil),
		FakeSignal:   NewFakeSignal(),
	}
}

// Executor implements Executor method from Environment interface
func (f *FakeRuntime) Executor() Executor {
	return f.FakeExecutor
}

// Vars implements Vars method from Environment interface
func (f *FakeRuntime) Vars() map[string]string {
	return f.FakeVars
}

// Args implements Args method from Environment interface
func (f *FakeRuntime) Args() []string {
	return f.FakeArgs
}

// Signal implements Signal method from Environment interface
func (f *FakeRuntime) Signal() Signals {
	return f.FakeSignal
}
