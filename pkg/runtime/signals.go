package runtime

import (
	"context"
	"os"
	"os/signal"
)

// Signals define methods for handling signals
type Signals interface {
	// Notify returns a channel for receiving notifications of the given signals
	Notify(...os.Signal) <-chan os.Signal
	// Reset stops receiving signal notifications in this channel.
	// If no signal is specified, all signals are cleared
	Reset(...os.Signal)
}

// implements the Signals interface
type signals struct {
	channel chan os.Signal
}

// DefaultSignals returns a default signal handler
func DefaultSignals() Signals {
	return &signals{
		channel: make(chan os.Signal, 1),
	}
}

// Notify implements Signal interface's Notify method
func (s *signals) Notify(signals ...os.Signal) <-chan os.Signal {
	signal.Notify(s.channel, signals...)

	return s.channel
}

// Reset implements Signal interface's Reset method
func (s *signals) Reset(signals ...os.Signal) {
	signal.Reset(signals...)
}

// CancelOnSignal returns a context that is canceled when any of the given signals is received.
// The returned function must be called to stop receiving the signals and release resources.
// The signal received, if any, is reported through context.Cause.
func CancelOnSignal(ctx context.Context, s Signals, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	sc := s.Notify(sigs...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sc:
			cancel(&SignalError{Signal: sig})
		case <-done:
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		close(done)
		s.Reset(sigs...)
		cancel(context.Canceled)
	}
}

// SignalError reports the signal that interrupted the execution
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return "received signal " + e.Signal.String()
}
