package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeDisputesPoll = "disputes:poll"
	DefaultCron      = "*/15 * * * *"
)

type Scheduler interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterSchedule adds the periodic poll to an asynq scheduler. Unique keeps
// a slow pass from overlapping with the next tick.
func RegisterSchedule(s Scheduler, cronspec string) (string, error) {
	if cronspec == "" {
		cronspec = DefaultCron
	}
	id, err := s.Register(cronspec, asynq.NewTask(TypeDisputesPoll, nil),
		asynq.MaxRetry(0),
		asynq.Unique(10*time.Minute))
	if err != nil {
		return "", fmt.Errorf("monitor: register %s: %w", cronspec, err)
	}
	return id, nil
}

// ProcessTask runs one pass for the disputes:poll task.
func (p *Poller) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	_, err := p.Run(ctx)
	return err
}
