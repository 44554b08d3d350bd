package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/leonletto/threadtrack/internal/logx"
)

// Sweeper runs the inactivity sweep on a cron schedule while a monitor is
// active.
type Sweeper struct {
	schedule string
	expire   func() (int, error)
	log      logx.Logger
}

// NewSweeper creates a sweeper. schedule uses standard cron syntax or a
// descriptor such as "@every 1h"; empty disables the sweeper.
func NewSweeper(schedule string, expire func() (int, error), log logx.Logger) *Sweeper {
	return &Sweeper{schedule: strings.TrimSpace(schedule), expire: expire, log: log}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.schedule == "" {
		<-ctx.Done()
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule expiry sweep %q: %w", s.schedule, err)
	}

	c.Start()
	s.log.Debug("expiry sweeper started", logx.String("schedule", s.schedule))
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Debug("expiry sweeper stopped")
	return nil
}

func (s *Sweeper) sweep() {
	n, err := s.expire()
	if err != nil {
		s.log.Warn("expiry sweep failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("expired inactive threads", logx.Int("count", n))
	}
}
