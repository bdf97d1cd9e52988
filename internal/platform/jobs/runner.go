// Package jobs schedules background work on cron expressions. The runner
// owns a single cron instance; the composition root registers named jobs
// and starts it alongside the HTTP server.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner wraps the cron scheduler. Jobs receive a context that is
// cancelled when the runner stops.
type Runner struct {
	cron   *cron.Cron
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu  sync.Mutex
	ids map[string]cron.EntryID
}

func NewRunner(log zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:   cron.New(),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		ids:    make(map[string]cron.EntryID),
	}
}

// Add registers a named job on a cron expression. Adding a name again
// replaces its previous schedule.
func (r *Runner) Add(name, spec string, job func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[name]; ok {
		r.cron.Remove(id)
		delete(r.ids, name)
	}

	id, err := r.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(r.ctx); err != nil {
			r.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}
		r.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	r.ids[name] = id
	r.log.Info().Str("job", name).Str("schedule", spec).Msg("job scheduled")
	return nil
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop cancels the job context, halts scheduling, and waits for running
// jobs to finish.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
}

// Names returns the registered job names.
func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.ids))
	for name := range r.ids {
		names = append(names, name)
	}
	return names
}
