// Package tracker implements the tracking lifecycle: adding threads,
// listing, removal by id and the inactivity sweep.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leonletto/threadtrack/internal/identity"
	"github.com/leonletto/threadtrack/internal/logx"
	"github.com/leonletto/threadtrack/internal/registry"
	"github.com/leonletto/threadtrack/internal/types"
)

var (
	// ErrNoSuchID is returned when no tracked thread has the given id.
	ErrNoSuchID = errors.New("no thread with that id")
	// ErrCanceled is returned when the operator declines a removal.
	ErrCanceled = errors.New("canceled")
)

// Fetcher retrieves a thread snapshot from the remote API.
type Fetcher interface {
	FetchThread(ctx context.Context, board, threadID string) (types.Snapshot, error)
}

// AddResult describes the outcome of Add. AlreadyTracked is set when the
// thread was tracked before the call; Record is then the stored record.
type AddResult struct {
	Record         types.ThreadRecord
	AlreadyTracked bool
}

// Service wraps the registry operations with persistence and fetching.
type Service struct {
	store   *registry.Store
	fetcher Fetcher
	log     logx.Logger
	now     func() time.Time
}

// NewService creates a tracker service.
func NewService(store *registry.Store, fetcher Fetcher, log logx.Logger) *Service {
	return &Service{store: store, fetcher: fetcher, log: log, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Add starts tracking the referenced thread. An already tracked thread is
// reported without fetching or touching the registry.
func (s *Service) Add(ctx context.Context, ref identity.Ref, interval int) (AddResult, error) {
	if interval < 1 {
		return AddResult{}, fmt.Errorf("check interval must be at least 1 second, got %d", interval)
	}
	key := ref.Key()

	if rec, ok := s.store.Load().Threads[key]; ok {
		return AddResult{Record: rec, AlreadyTracked: true}, nil
	}

	snap, err := s.fetcher.FetchThread(ctx, key.Board, key.ThreadID)
	if err != nil {
		return AddResult{}, fmt.Errorf("fetch %s: %w", key, err)
	}

	var res AddResult
	err = s.store.Update(func(reg *types.Registry) (bool, error) {
		// Another invocation may have added it while we were fetching.
		if rec, ok := reg.Threads[key]; ok {
			res = AddResult{Record: rec, AlreadyTracked: true}
			return false, nil
		}
		res.Record = Insert(reg, key, snap, interval, s.now())
		return true, nil
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("save registry: %w", err)
	}
	if !res.AlreadyTracked {
		s.log.Info("thread added",
			logx.Int("id", res.Record.ID),
			logx.String("thread", key.String()),
			logx.Int64("cursor", res.Record.LastPostNo),
		)
	}
	return res, nil
}

// List returns the tracked threads grouped by board.
func (s *Service) List() []BoardGroup {
	return Group(s.store.Load())
}

// Find returns the record with the given tracking id.
func (s *Service) Find(id int) (types.ThreadRecord, error) {
	rec, ok := s.store.Load().FindByID(id)
	if !ok {
		return types.ThreadRecord{}, fmt.Errorf("%w: %d", ErrNoSuchID, id)
	}
	return rec, nil
}

// Remove stops tracking the thread with the given id. Unless force is set,
// confirm is asked first and a false answer yields ErrCanceled.
func (s *Service) Remove(id int, force bool, confirm func(types.ThreadRecord) bool) (types.ThreadRecord, error) {
	rec, err := s.Find(id)
	if err != nil {
		return types.ThreadRecord{}, err
	}
	if !force && (confirm == nil || !confirm(rec)) {
		return types.ThreadRecord{}, ErrCanceled
	}

	var removed types.ThreadRecord
	err = s.store.Update(func(reg *types.Registry) (bool, error) {
		r, ok := RemoveID(reg, id)
		if !ok {
			return false, fmt.Errorf("%w: %d", ErrNoSuchID, id)
		}
		removed = r
		return true, nil
	})
	if err != nil {
		return types.ThreadRecord{}, err
	}
	s.log.Info("thread removed", logx.Int("id", removed.ID), logx.String("thread", removed.Key().String()))
	return removed, nil
}

// Expire drops every thread without activity for longer than ExpiryWindow
// and returns how many were removed. Threads under a key in keep survive
// regardless of age.
func (s *Service) Expire(keep ...types.ThreadKey) (int, error) {
	cutoff := s.now().Add(-ExpiryWindow)

	var removed []types.ThreadRecord
	err := s.store.Update(func(reg *types.Registry) (bool, error) {
		removed = ExpireBefore(reg, cutoff, keep...)
		return len(removed) > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("save registry: %w", err)
	}
	for _, rec := range removed {
		s.log.Info("thread expired",
			logx.Int("id", rec.ID),
			logx.String("thread", rec.Key().String()),
			logx.Time("last_update", rec.LastUpdate),
		)
	}
	return len(removed), nil
}
