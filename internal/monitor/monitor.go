// Package monitor polls one tracked thread, notifies about new posts and
// keeps the thread's cursor in the registry current.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/leonletto/threadtrack/internal/history"
	"github.com/leonletto/threadtrack/internal/logx"
	"github.com/leonletto/threadtrack/internal/notify"
	"github.com/leonletto/threadtrack/internal/registry"
	"github.com/leonletto/threadtrack/internal/textutil"
	"github.com/leonletto/threadtrack/internal/tracker"
	"github.com/leonletto/threadtrack/internal/types"
)

// bodyLimit is the rune limit for a notification body.
const bodyLimit = 200

// Reason says why a monitor stopped.
type Reason string

const (
	// ReasonThreadGone means the remote thread no longer exists; the record
	// was removed.
	ReasonThreadGone Reason = "thread_gone"
	// ReasonCanceled means the context was canceled; the record is kept.
	ReasonCanceled Reason = "canceled"
	// ReasonRemoved means the record disappeared from the registry, either
	// deleted or expired by another invocation.
	ReasonRemoved Reason = "removed"
)

// Outcome is the terminal state of a Run.
type Outcome struct {
	Reason Reason
	Record types.ThreadRecord
}

// Recorder stores notification attempts.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Hooks receive progress events. Nil hooks are skipped.
type Hooks struct {
	OnNewPosts   func(rec types.ThreadRecord, posts []types.Post)
	OnError      func(rec types.ThreadRecord, err error)
	OnTerminated func(out Outcome)
}

// Options configures a Monitor. Store, Fetcher and Notifier are required.
type Options struct {
	Store    *registry.Store
	Fetcher  tracker.Fetcher
	Notifier notify.Notifier
	Recorder Recorder
	Clock    Clock
	Log      logx.Logger
	Hooks    Hooks
	// Wake signals that the registry file changed on disk.
	Wake <-chan struct{}
}

// Monitor runs the poll loop for a single thread.
type Monitor struct {
	store    *registry.Store
	fetcher  tracker.Fetcher
	notifier notify.Notifier
	recorder Recorder
	clock    Clock
	log      logx.Logger
	hooks    Hooks
	wake     <-chan struct{}
}

// New creates a monitor.
func New(opts Options) *Monitor {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	return &Monitor{
		store:    opts.Store,
		fetcher:  opts.Fetcher,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		clock:    opts.Clock,
		log:      opts.Log,
		hooks:    opts.Hooks,
		wake:     opts.Wake,
	}
}

// NewPosts returns the posts numbered above cursor in ascending order.
func NewPosts(snap types.Snapshot, cursor int64) []types.Post {
	var out []types.Post
	for _, p := range snap.Posts {
		if p.No > cursor {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })
	return out
}

// NotificationTitle is the alert title for a thread, e.g. "/g/ - 555".
func NotificationTitle(rec types.ThreadRecord) string {
	return fmt.Sprintf("/%s/ - %s", rec.Board, rec.ThreadID)
}

// NotificationBody is the alert body for a post: its plain-text comment
// truncated to 200 runes, or "No content".
func NotificationBody(p types.Post) string {
	if text := textutil.Preview(p.Comment, bodyLimit); text != "" {
		return text
	}
	return "No content"
}

// Run polls the thread with the given key until it terminates. The returned
// error is non-nil only when a terminal registry write failed.
func (m *Monitor) Run(ctx context.Context, key types.ThreadKey) (Outcome, error) {
	log := m.log.With(logx.String("thread", key.String()))
	var (
		last          types.ThreadRecord
		archivedNoted bool
	)

	for {
		if ctx.Err() != nil {
			return m.terminate(Outcome{Reason: ReasonCanceled, Record: last}), nil
		}

		rec, ok := m.store.Load().Threads[key]
		if !ok {
			log.Info("record no longer in registry")
			return m.terminate(Outcome{Reason: ReasonRemoved, Record: last}), nil
		}
		last = rec

		snap, err := m.fetcher.FetchThread(ctx, key.Board, key.ThreadID)
		switch {
		case err == nil:
			if (snap.Archived || snap.Closed) && !archivedNoted {
				archivedNoted = true
				log.Info("thread is closed to new replies",
					logx.Bool("archived", snap.Archived),
					logx.Bool("closed", snap.Closed),
				)
			}
			if rec, ok = m.process(ctx, log, rec, snap); ok {
				last = rec
			}

		case errors.Is(err, types.ErrThreadNotFound):
			log.Info("thread gone, removing from registry")
			out := Outcome{Reason: ReasonThreadGone, Record: rec}
			werr := m.store.Update(func(reg *types.Registry) (bool, error) {
				if _, ok := reg.Threads[key]; !ok {
					return false, nil
				}
				delete(reg.Threads, key)
				return true, nil
			})
			if werr != nil {
				log.Error("remove vanished thread", logx.Err(werr))
				return m.terminate(out), fmt.Errorf("remove %s: %w", key, werr)
			}
			return m.terminate(out), nil

		case ctx.Err() != nil:
			return m.terminate(Outcome{Reason: ReasonCanceled, Record: rec}), nil

		default:
			log.Error("fetch failed", logx.Err(err), logx.Duration("retry_in", rec.Interval()))
			if m.hooks.OnError != nil {
				m.hooks.OnError(rec, err)
			}
		}

		if reason := m.wait(ctx, key, rec.Interval()); reason != "" {
			return m.terminate(Outcome{Reason: reason, Record: last}), nil
		}
	}
}

// process notifies about posts above the cursor and advances it. It returns
// the updated record and whether the cursor moved.
func (m *Monitor) process(ctx context.Context, log logx.Logger, rec types.ThreadRecord, snap types.Snapshot) (types.ThreadRecord, bool) {
	posts := NewPosts(snap, rec.LastPostNo)
	if len(posts) == 0 {
		log.Debug("no new posts", logx.Int64("cursor", rec.LastPostNo))
		return rec, false
	}

	log.Info("new posts", logx.Int("count", len(posts)))
	if m.hooks.OnNewPosts != nil {
		m.hooks.OnNewPosts(rec, posts)
	}
	for _, p := range posts {
		m.deliver(ctx, log, rec, p)
	}

	maxNo := posts[len(posts)-1].No
	now := m.clock.Now()
	var moved bool
	err := m.store.Update(func(reg *types.Registry) (bool, error) {
		moved = tracker.AdvanceCursor(reg, rec.Key(), maxNo, now)
		return moved, nil
	})
	if err != nil {
		log.Error("persist cursor", logx.Err(err), logx.Int64("cursor", maxNo))
		if m.hooks.OnError != nil {
			m.hooks.OnError(rec, err)
		}
		return rec, false
	}
	if !moved {
		return rec, false
	}
	rec.LastPostNo = maxNo
	rec.LastUpdate = now
	return rec, true
}

func (m *Monitor) deliver(ctx context.Context, log logx.Logger, rec types.ThreadRecord, p types.Post) {
	title := NotificationTitle(rec)
	body := NotificationBody(p)

	err := m.notifier.Deliver(ctx, title, body)
	if err != nil {
		log.Warn("notification failed", logx.Int64("post", p.No), logx.Err(err))
	}

	if m.recorder == nil {
		return
	}
	entry := history.Entry{
		TrackingID: rec.ID,
		Board:      rec.Board,
		ThreadID:   rec.ThreadID,
		PostNo:     p.No,
		Title:      title,
		Body:       body,
		Delivered:  err == nil,
		CreatedAt:  m.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// Record even when ctx was canceled mid-delivery.
	if _, rerr := m.recorder.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		log.Warn("record notification", logx.Err(rerr))
	}
}

// wait sleeps for d. Registry change signals re-check that the record still
// exists without resetting the timer. It returns a non-empty reason when
// the monitor must stop.
func (m *Monitor) wait(ctx context.Context, key types.ThreadKey, d time.Duration) Reason {
	if d <= 0 {
		d = time.Second
	}
	timer := m.clock.After(d)
	for {
		select {
		case <-ctx.Done():
			return ReasonCanceled
		case <-timer:
			return ""
		case <-m.wake:
			if _, ok := m.store.Load().Threads[key]; !ok {
				m.log.Info("record removed while waiting", logx.String("thread", key.String()))
				return ReasonRemoved
			}
		}
	}
}

func (m *Monitor) terminate(out Outcome) Outcome {
	if m.hooks.OnTerminated != nil {
		m.hooks.OnTerminated(out)
	}
	return out
}
