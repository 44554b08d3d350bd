// Package notify delivers per-post alerts to the operator.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/leonletto/threadtrack/internal/logx"
)

// Notifier delivers one alert. Implementations must be safe to call from a
// single goroutine repeatedly; failures are returned, never fatal.
type Notifier interface {
	Deliver(ctx context.Context, title, body string) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, title, body string) error

// Deliver calls f.
func (f Func) Deliver(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

// Named is implemented by notifiers that report a backend name in errors.
type Named interface {
	Name() string
}

// Multi fans an alert out to every notifier. A failing backend does not stop
// the others; all failures are joined.
type Multi []Notifier

// Deliver sends to every backend in order.
func (m Multi) Deliver(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Deliver(ctx, title, body); err != nil {
			if nn, ok := n.(Named); ok {
				err = fmt.Errorf("%s: %w", nn.Name(), err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes alerts to the structured logger at info level.
type Log struct {
	Logger logx.Logger
}

// Name implements Named.
func (Log) Name() string { return "log" }

// Deliver implements Notifier.
func (l Log) Deliver(_ context.Context, title, body string) error {
	l.Logger.Info("new post", logx.String("title", title), logx.String("body", body))
	return nil
}
