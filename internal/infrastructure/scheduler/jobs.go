package scheduler

import (
	"context"
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Sweeper is the set of maintenance passes the scheduler drives
type Sweeper interface {
	AutoCancelStale(ctx context.Context, threshold time.Duration, batchSize int) (telemetry.SweepResult, error)
	PurgeOrphans(ctx context.Context, ttl time.Duration, batchSize int) (telemetry.SweepResult, error)
	PurgeChat(ctx context.Context, ttl time.Duration, batchSize int) (telemetry.SweepResult, error)
}

// Job names
const (
	JobAutoCancel     = "auto_cancel"
	JobOrphanPurge    = "orphan_attachments"
	JobChatRetention  = "chat_retention"
	defaultJobTimeout = 45 * time.Second
	defaultSweepBatch = 200
)

// AutoCancelJob cancels orders nobody picked within the threshold
func AutoCancelJob(sweeper Sweeper, cfg config.SchedulerConfig, logger *zap.Logger) Job {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return Job{
		Name:     JobAutoCancel,
		Interval: cfg.AutoCancelInterval,
		Timeout:  timeout,
		Run: func(ctx context.Context) error {
			res, err := sweeper.AutoCancelStale(ctx, cfg.AutoCancelThreshold, batchSize(cfg.BatchSize))
			logResult(logger, res)
			return err
		},
	}
}

// RetentionJobs returns the attachment and chat cleanup jobs. A zero TTL
// disables the corresponding job.
func RetentionJobs(sweeper Sweeper, cfg config.RetentionConfig, timeout time.Duration, logger *zap.Logger) []Job {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	var jobs []Job
	if cfg.OrphanAttachmentTTL > 0 {
		jobs = append(jobs, Job{
			Name:     JobOrphanPurge,
			Interval: cfg.SweepInterval,
			Timeout:  timeout,
			Run: func(ctx context.Context) error {
				res, err := sweeper.PurgeOrphans(ctx, cfg.OrphanAttachmentTTL, batchSize(cfg.BatchSize))
				logResult(logger, res)
				return err
			},
		})
	}
	if cfg.ChatMessageTTL > 0 {
		jobs = append(jobs, Job{
			Name:     JobChatRetention,
			Interval: cfg.SweepInterval,
			Timeout:  timeout,
			Run: func(ctx context.Context) error {
				res, err := sweeper.PurgeChat(ctx, cfg.ChatMessageTTL, batchSize(cfg.BatchSize))
				logResult(logger, res)
				return err
			},
		})
	}
	return jobs
}

func batchSize(n int) int {
	if n <= 0 {
		return defaultSweepBatch
	}
	return n
}

func logResult(logger *zap.Logger, res telemetry.SweepResult) {
	if res.Processed == 0 && res.Failed == 0 {
		logger.Debug("Sweep finished with nothing to do",
			zap.String("job", res.Job),
			zap.Int("skipped", res.Skipped))
		return
	}
	logger.Info("Sweep finished",
		zap.String("job", res.Job),
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration))
}
