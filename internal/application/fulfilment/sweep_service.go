package fulfilment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Sweep job names, used in logs and metrics
const (
	JobAutoCancel    = "auto_cancel"
	JobOrphanPurge   = "orphan_attachments"
	JobChatRetention = "chat_retention"
)

// SweepService holds the background clean-up jobs. Each job is safe to run
// repeatedly: a second run over the same data finds nothing left to do.
type SweepService struct {
	orderRepo      fulfilment.OrderRepository
	chatRepo       fulfilment.ChatRepository
	attachmentRepo attachment.Repository
	storage        ObjectStorage
	txManager      shared.TxManager
	metrics        *telemetry.FulfilmentMetrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewSweepService creates a new SweepService
func NewSweepService(
	orderRepo fulfilment.OrderRepository,
	chatRepo fulfilment.ChatRepository,
	attachmentRepo attachment.Repository,
	storage ObjectStorage,
	txManager shared.TxManager,
	logger *zap.Logger,
) *SweepService {
	return &SweepService{
		orderRepo:      orderRepo,
		chatRepo:       chatRepo,
		attachmentRepo: attachmentRepo,
		storage:        storage,
		txManager:      txManager,
		logger:         logger,
		now:            time.Now,
	}
}

// SetMetrics enables sweep counters
func (s *SweepService) SetMetrics(m *telemetry.FulfilmentMetrics) {
	s.metrics = m
}

// AutoCancelStale cancels up to batchSize submitted orders that nobody
// picked within threshold. Every order is cancelled in its own transaction;
// an order that fails or was picked in the meantime is counted and skipped
// without affecting the rest of the batch.
func (s *SweepService) AutoCancelStale(ctx context.Context, threshold time.Duration, batchSize int) (telemetry.SweepResult, error) {
	result := telemetry.SweepResult{Job: JobAutoCancel}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		s.metrics.RecordSweep(ctx, result)
	}()

	now := s.now().UTC()
	candidates, err := s.orderRepo.FindStaleSubmitted(ctx, now.Add(-threshold), batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to find stale orders: %w", err)
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		order := &candidates[i]
		cancelled, err := s.cancelOne(ctx, order, now, threshold)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("Auto-cancel failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
		case cancelled:
			result.Processed++
			s.metrics.RecordTransition(ctx, fulfilment.ActionAutoCancelled)
			s.logger.Info("Order auto-cancelled",
				zap.String("order_id", order.ID.String()),
				zap.Time("created_at", order.CreatedAt))
		default:
			result.Skipped++
		}
	}

	if len(candidates) > 0 {
		s.logger.Info("Auto-cancel sweep finished",
			zap.Int("candidates", len(candidates)),
			zap.Int("cancelled", result.Processed),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// cancelOne reports false without error when the order no longer qualifies,
// for example because a staff member picked it after it was loaded.
func (s *SweepService) cancelOne(ctx context.Context, order *fulfilment.Order, now time.Time, threshold time.Duration) (bool, error) {
	if !order.IsStale(now, threshold) {
		return false, nil
	}
	if err := order.AutoCancel(now, threshold); err != nil {
		return false, err
	}
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.orderRepo.SaveWithLock(ctx, order)
	})
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		s.metrics.RecordConflict(ctx, fulfilment.ActionAutoCancelled)
		s.logger.Debug("Order changed during auto-cancel, leaving it to the winner",
			zap.String("order_id", order.ID.String()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeOrphans marks files that were uploaded but never linked within ttl
// as deleted and removes their blobs.
func (s *SweepService) PurgeOrphans(ctx context.Context, ttl time.Duration, batchSize int) (telemetry.SweepResult, error) {
	result := telemetry.SweepResult{Job: JobOrphanPurge}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		s.metrics.RecordSweep(ctx, result)
	}()

	now := s.now().UTC()
	orphans, err := s.attachmentRepo.FindOrphans(ctx, now.Add(-ttl), batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to find orphan attachments: %w", err)
	}

	for i := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		a := &orphans[i]
		if !a.IsOrphan(now, ttl) {
			result.Skipped++
			continue
		}
		if err := a.MarkDeleted(); err != nil {
			result.Skipped++
			continue
		}
		// The row is claimed first so a file linked in the meantime keeps
		// its blob: the version check fails and the file is left alone.
		if err := s.attachmentRepo.Save(ctx, a); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				result.Skipped++
				continue
			}
			result.Failed++
			s.logger.Error("Failed to mark orphan attachment deleted",
				zap.String("attachment_id", a.ID.String()),
				zap.Error(err))
			continue
		}
		if err := s.storage.DeleteObject(ctx, a.StorageKey); err != nil {
			result.Failed++
			s.logger.Error("Failed to delete orphan blob",
				zap.String("attachment_id", a.ID.String()),
				zap.String("storage_key", a.StorageKey),
				zap.Error(err))
			continue
		}
		result.Processed++
	}

	if result.Processed > 0 || result.Failed > 0 {
		s.logger.Info("Orphan attachment sweep finished",
			zap.Int("deleted", result.Processed),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

// PurgeChat deletes up to batchSize chat messages older than ttl
func (s *SweepService) PurgeChat(ctx context.Context, ttl time.Duration, batchSize int) (telemetry.SweepResult, error) {
	result := telemetry.SweepResult{Job: JobChatRetention}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		s.metrics.RecordSweep(ctx, result)
	}()

	deleted, err := s.chatRepo.DeleteOlderThan(ctx, s.now().UTC().Add(-ttl), batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to purge chat messages: %w", err)
	}
	result.Processed = int(deleted)
	if deleted > 0 {
		s.logger.Info("Chat retention sweep finished", zap.Int64("deleted", deleted))
	}
	return result, nil
}
