package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkdrop/inkdrop/internal/metrics"
	"github.com/robfig/cron/v3"
)

// ExpiredSessionPurger deletes refresh tokens past their expiry and reports how many went.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Janitor periodically purges expired refresh tokens. Refresh already rejects
// expired tokens on its own; the purge only keeps the table small.
type Janitor struct {
	log    *slog.Logger
	store  ExpiredSessionPurger
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJanitor schedules the purge on expr, a standard 5-field cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func NewJanitor(log *slog.Logger, store ExpiredSessionPurger, expr string) (*Janitor, error) {
	j := &Janitor{log: log, store: store, cron: cron.New()}
	if _, err := j.cron.AddFunc(expr, j.runOnce); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}
	return j, nil
}

// Start runs the schedule in the background until ctx is cancelled or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.cron.Start()
	go func() {
		<-j.ctx.Done()
		j.cron.Stop()
	}()
}

// Stop halts the schedule and waits for a running purge to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	<-j.cron.Stop().Done()
}

func (j *Janitor) runOnce() {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := j.Purge(ctx); err != nil {
		j.log.Error("scheduler: purge expired sessions", "err", err)
	}
}

// Purge deletes expired refresh tokens now.
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	n, err := j.store.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.AddSessionsPurged(n)
	if n > 0 {
		j.log.Info("scheduler: purged expired sessions", "count", n)
	}
	return n, nil
}
