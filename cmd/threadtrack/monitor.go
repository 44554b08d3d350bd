package main

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/leonletto/threadtrack/internal/cli"
	"github.com/leonletto/threadtrack/internal/logx"
	"github.com/leonletto/threadtrack/internal/monitor"
	"github.com/leonletto/threadtrack/internal/types"
)

// monitor blocks until the thread vanishes, is removed elsewhere or ctx is
// canceled. The registry watcher and the expiry sweeper run alongside it
// and stop with it.
func (a *app) monitor(ctx context.Context, rec types.ThreadRecord, out io.Writer) error {
	notifier, err := a.notifier()
	if err != nil {
		return err
	}

	opts := monitor.Options{
		Store:    a.store,
		Fetcher:  a.api,
		Notifier: notifier,
		Log:      a.log.With(logx.String("component", "monitor")),
		Hooks: monitor.Hooks{
			OnNewPosts: func(rec types.ThreadRecord, _ []types.Post) {
				_, _ = fmt.Fprintf(out, "New posts detected in %s\n", rec.Key())
			},
			OnTerminated: func(o monitor.Outcome) {
				key := rec.Key()
				switch o.Reason {
				case monitor.ReasonThreadGone:
					_, _ = fmt.Fprintf(out, "Thread %s no longer exists, removing from tracking\n", key)
				case monitor.ReasonRemoved:
					_, _ = fmt.Fprintf(out, "Thread %s is no longer being tracked\n", key)
				case monitor.ReasonCanceled:
					_, _ = fmt.Fprintf(out, "\nStopped monitoring %s\n", key)
				}
			},
		},
	}

	if a.cfg.History.Enabled {
		h, err := a.openHistory()
		if err != nil {
			a.log.Warn("notification history unavailable", logx.Err(err))
		} else {
			opts.Recorder = h
		}
	}

	wake := make(chan struct{}, 1)
	opts.Wake = wake

	_, _ = fmt.Fprint(out, cli.FormatMonitorStart(rec))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.store.Watch(gctx, wake)
	})
	g.Go(func() error {
		// The monitored thread only leaves through vanishing or cancel.
		expire := func() (int, error) { return a.tracker.Expire(rec.Key()) }
		return monitor.NewSweeper(a.cfg.Expiry.SweepSchedule, expire,
			a.log.With(logx.String("component", "sweeper"))).Run(gctx)
	})
	g.Go(func() error {
		// The helpers stop when the monitor does.
		defer cancel()
		o, err := monitor.New(opts).Run(gctx, rec.Key())
		a.log.Debug("monitor finished", logx.String("reason", string(o.Reason)))
		return err
	})

	return g.Wait()
}
