package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Stephi-25/Odjassa/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const completionJobName = "completion"

// Completer closes out delivered orders.
type Completer interface {
	CompleteDelivered(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// CompletionJob periodically moves orders delivered longer than the grace
// period ago to completed.
type CompletionJob struct {
	completer Completer
	cron      *cron.Cron
	schedule  string
	grace     time.Duration
	batch     int
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewCompletionJob(completer Completer, schedule string, grace time.Duration, batch int, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *CompletionJob {
	return &CompletionJob{
		completer: completer,
		cron:      cron.New(),
		schedule:  schedule,
		grace:     grace,
		batch:     batch,
		timeout:   timeout,
		logger:    logger.Named("completion_job"),
		metrics:   m,
		now:       time.Now,
	}
}

// Run completes batches until one comes back short.
func (j *CompletionJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.grace)
	total := 0
	for {
		runCtx := ctx
		cancel := func() {}
		if j.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, j.timeout)
		}
		n, err := j.completer.CompleteDelivered(runCtx, cutoff, j.batch)
		cancel()
		if err != nil {
			return total, err
		}
		total += n
		if n < j.batch {
			return total, nil
		}
	}
}

func (j *CompletionJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()
		n, err := j.Run(ctx)
		if err != nil {
			j.metrics.JobRun(completionJobName, "error")
			j.logger.Error("completion run failed", zap.Int("completed", n), zap.Error(err))
			return
		}
		j.metrics.JobRun(completionJobName, "success")
		if n > 0 {
			j.logger.Info("orders completed", zap.Int("completed", n))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule completion job %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.logger.Info("completion job started", zap.String("schedule", j.schedule), zap.Duration("grace", j.grace))
	return nil
}

// Stop waits for a running sweep to finish.
func (j *CompletionJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("completion job stopped")
}
