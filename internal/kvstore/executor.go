package kvstore

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrNullResult is returned when a command succeeds with a null reply.
var ErrNullResult = errors.New("kvstore: null result")

// Executor runs a single key-value-store command such as
// ["LRANGE", "bookings:list", "0", "-1"] and returns its reply as strings.
type Executor interface {
	Do(ctx context.Context, cmd ...string) ([]string, error)
}

// CommandError is a failure reported by the store or its transport.
type CommandError struct {
	Command    string
	StatusCode int
	Message    string
}

func (e *CommandError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Command, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// IsCommandError checks if the error is a CommandError.
func IsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}

// NewLimiter returns a token bucket for perSecond commands, or nil when
// perSecond is not positive.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func commandName(cmd []string) string {
	if len(cmd) == 0 {
		return "<empty>"
	}
	return cmd[0]
}
