package fulfilment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/access"
	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/category"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderServiceConfig holds tuning knobs for the order service
type OrderServiceConfig struct {
	// MaxConflictRetries is how often a transition that lost an optimistic
	// lock race is reloaded and re-evaluated before giving up
	MaxConflictRetries int
	// IdempotencyTTL is how long an Idempotency-Key on create is remembered
	IdempotencyTTL time.Duration
}

// DefaultOrderServiceConfig returns the default configuration
func DefaultOrderServiceConfig() OrderServiceConfig {
	return OrderServiceConfig{
		MaxConflictRetries: 3,
		IdempotencyTTL:     24 * time.Hour,
	}
}

// OrderService runs the order lifecycle. Every transition loads the order,
// checks the access gate and the domain precondition, and saves the order
// together with its audit row in one transaction.
type OrderService struct {
	orderRepo      fulfilment.OrderRepository
	disputeRepo    fulfilment.DisputeRepository
	categoryRepo   category.Repository
	attachmentRepo attachment.Repository
	txManager      shared.TxManager
	idempotency    shared.IdempotencyStore
	metrics        *telemetry.FulfilmentMetrics
	config         OrderServiceConfig
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo fulfilment.OrderRepository,
	disputeRepo fulfilment.DisputeRepository,
	categoryRepo category.Repository,
	attachmentRepo attachment.Repository,
	txManager shared.TxManager,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		disputeRepo:    disputeRepo,
		categoryRepo:   categoryRepo,
		attachmentRepo: attachmentRepo,
		txManager:      txManager,
		idempotency:    idempotency,
		config:         DefaultOrderServiceConfig(),
		logger:         logger,
		now:            time.Now,
	}
}

// SetConfig sets the service configuration
func (s *OrderService) SetConfig(config OrderServiceConfig) {
	s.config = config
}

// SetMetrics enables transition and conflict counters
func (s *OrderService) SetMetrics(m *telemetry.FulfilmentMetrics) {
	s.metrics = m
}

// Create submits a new order for the caller's team. When idempotencyKey is
// set, a retry with the same key returns the order created by the first call.
func (s *OrderService) Create(ctx context.Context, p identity.Principal, req CreateOrderRequest, idempotencyKey string) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create", attribute.String("team_id", req.TeamID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if idempotencyKey == "" || s.idempotency == nil {
		return s.create(ctx, p, req)
	}

	key := fmt.Sprintf("order:create:%s:%s", p.UserID, idempotencyKey)
	reserved, err := s.idempotency.Reserve(ctx, key, s.config.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !reserved {
		return s.replay(ctx, p, key)
	}

	resp, err = s.create(ctx, p, req)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}
	if err := s.idempotency.Complete(ctx, key, resp.ID.String(), s.config.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency result", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

func (s *OrderService) replay(ctx context.Context, p identity.Principal, key string) (*OrderResponse, error) {
	result, err := s.idempotency.Result(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("IDEMPOTENCY_KEY_EXPIRED", "Idempotency key expired, retry the request")
		}
		return nil, fmt.Errorf("failed to read idempotency result: %w", err)
	}
	if result == shared.IdempotencyPending {
		return nil, shared.NewDomainError("REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed")
	}
	id, err := uuid.Parse(result)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency result %q: %w", result, err)
	}
	s.logger.Debug("Replaying idempotent order create", zap.String("order_id", id.String()))
	return s.Get(ctx, p, id)
}

func (s *OrderService) create(ctx context.Context, p identity.Principal, req CreateOrderRequest) (*OrderResponse, error) {
	cat, err := s.categoryRepo.FindByID(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
		}
		return nil, err
	}
	if !cat.Active {
		return nil, shared.NewDomainError("CATEGORY_INACTIVE", "Category is not accepting orders")
	}

	order, err := fulfilment.NewOrder(p, fulfilment.NewOrderInput{
		TeamID:           req.TeamID,
		CategoryID:       req.CategoryID,
		SLA:              fulfilment.SLA(req.SLA),
		CartValueUSD:     req.CartValueUSD,
		CurrencyOverride: req.CurrencyOverride,
		Details: fulfilment.OrderDetails{
			Merchant:        req.Merchant,
			CustomerName:    req.CustomerName,
			Country:         req.Country,
			City:            req.City,
			Contact:         req.Contact,
			PickupAddress:   req.PickupAddress,
			DeliveryAddress: req.DeliveryAddress,
			TimeWindow:      req.TimeWindow,
			ItemsSummary:    req.ItemsSummary,
		},
		AttachmentIDs: req.AttachmentIDs,
	})
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		return linkAttachments(ctx, s.attachmentRepo, order.AttachmentIDs,
			attachment.EntityOrder, order.ID, order.ID, p.UserID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(ctx, fulfilment.ActionCreated)

	s.logger.Info("Order submitted",
		zap.String("order_id", order.ID.String()),
		zap.String("team_id", order.TeamID.String()),
		zap.String("user_id", p.UserID.String()))

	resp := ToOrderResponse(order, true)
	return &resp, nil
}

// Get returns one order if the caller may read it. Staff may also open an
// order currently offered to them in the pick queue.
func (s *OrderService) Get(ctx context.Context, p identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.InQueue(p, order) {
		if err := access.AuthorizeRead(p, order); err != nil {
			return nil, err
		}
	}
	resp := ToOrderResponse(order, access.CanWrite(p, order))
	return &resp, nil
}

// Pick claims a submitted order. Of two staff members picking concurrently
// exactly one succeeds; the other gets ALREADY_PICKED.
func (s *OrderService) Pick(ctx context.Context, p identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionPicked,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			return true, o.Pick(p, now)
		}, nil)
	return s.respond(p, order, err)
}

// Pass declines a submitted order for the caller. Passing twice is a no-op.
func (s *OrderService) Pass(ctx context.Context, p identity.Principal, id uuid.UUID, req PassOrderRequest) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionPassed,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			return o.Pass(p, req.Reason, now)
		}, nil)
	return s.respond(p, order, err)
}

// Start moves a picked or held order into progress
func (s *OrderService) Start(ctx context.Context, p identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionInProgress,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeRead(p, o); err != nil {
				return false, err
			}
			return true, o.Start(p, now)
		}, nil)
	return s.respond(p, order, err)
}

// Hold pauses an order with a reason
func (s *OrderService) Hold(ctx context.Context, p identity.Principal, id uuid.UUID, req HoldOrderRequest) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionHold,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeRead(p, o); err != nil {
				return false, err
			}
			return true, o.Hold(p, req.Reason, now)
		}, nil)
	return s.respond(p, order, err)
}

// Resume continues a held order
func (s *OrderService) Resume(ctx context.Context, p identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionResume,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeRead(p, o); err != nil {
				return false, err
			}
			return true, o.Resume(p, now)
		}, nil)
	return s.respond(p, order, err)
}

// SubmitFulfilment records the proof of purchase and links the proof files
func (s *OrderService) SubmitFulfilment(ctx context.Context, p identity.Principal, id uuid.UUID, req SubmitFulfilmentRequest) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionFulfilSubmitted,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeRead(p, o); err != nil {
				return false, err
			}
			return true, o.SubmitFulfilment(p, fulfilment.FulfilmentInput{
				MerchantLink:  req.MerchantLink,
				NameOnOrder:   req.NameOnOrder,
				FinalValueUSD: req.FinalValueUSD,
				ProofFileIDs:  req.ProofFileIDs,
			}, now)
		},
		func(ctx context.Context, o *fulfilment.Order) error {
			return linkAttachments(ctx, s.attachmentRepo, o.Fulfilment.ProofFileIDs,
				attachment.EntityFulfilment, o.ID, o.ID, p.UserID)
		})
	return s.respond(p, order, err)
}

// Complete accepts the submitted fulfilment
func (s *OrderService) Complete(ctx context.Context, p identity.Principal, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionCompleted,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := access.AuthorizeWrite(p, o); err != nil {
				return false, err
			}
			return true, o.Complete(p, now)
		}, nil)
	return s.respond(p, order, err)
}

// GrantAccess adds a user to the order's read or write list
func (s *OrderService) GrantAccess(ctx context.Context, p identity.Principal, id uuid.UUID, req AccessChangeRequest) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionAccessChanged,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := s.authorizeAccessChange(p, o); err != nil {
				return false, err
			}
			return o.GrantAccess(p, req.UserID, fulfilment.AccessLevel(req.Level), now)
		}, nil)
	return s.respond(p, order, err)
}

// RevokeAccess removes a user from the order's read or write list
func (s *OrderService) RevokeAccess(ctx context.Context, p identity.Principal, id uuid.UUID, req AccessChangeRequest) (*OrderResponse, error) {
	order, err := s.transition(ctx, p, id, fulfilment.ActionAccessChanged,
		func(_ context.Context, o *fulfilment.Order, now time.Time) (bool, error) {
			if err := s.authorizeAccessChange(p, o); err != nil {
				return false, err
			}
			return o.RevokeAccess(p, req.UserID, fulfilment.AccessLevel(req.Level), now)
		}, nil)
	return s.respond(p, order, err)
}

func (s *OrderService) authorizeAccessChange(p identity.Principal, o *fulfilment.Order) error {
	if err := access.AuthorizeRead(p, o); err != nil {
		return err
	}
	if !access.CanManageAccess(p, o) {
		return shared.NewDomainError("FORBIDDEN", "Only owners and team admins can manage order access")
	}
	return nil
}

// mutation checks the caller and applies one domain transition. It reports
// false when the call changed nothing and no write is needed.
type mutation func(ctx context.Context, o *fulfilment.Order, now time.Time) (bool, error)

// sideEffect runs in the transaction right after the order row is written
type sideEffect func(ctx context.Context, o *fulfilment.Order) error

// transition is the single path by which an order changes state. The
// version compare-and-swap in SaveWithLock makes the precondition check and
// the write one atomic unit: a lost race reloads the order and re-checks,
// so the loser sees the winner's state.
func (s *OrderService) transition(
	ctx context.Context,
	p identity.Principal,
	id uuid.UUID,
	action string,
	mutate mutation,
	after sideEffect,
) (order *fulfilment.Order, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", action,
		attribute.String("order_id", id.String()),
		attribute.String("user_id", p.UserID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	for attempt := 0; attempt <= s.config.MaxConflictRetries; attempt++ {
		order, err = s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		var changed bool
		changed, err = mutate(ctx, order, s.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return order, nil
		}

		err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
				return err
			}
			if after != nil {
				return after(ctx, order)
			}
			return nil
		})
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.metrics.RecordConflict(ctx, action)
			s.logger.Debug("Order changed concurrently, retrying",
				zap.String("order_id", id.String()),
				zap.String("action", action),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.RecordTransition(ctx, action)
		s.logger.Info("Order transition",
			zap.String("order_id", order.ID.String()),
			zap.String("action", action),
			zap.String("status", string(order.Status)),
			zap.String("user_id", p.UserID.String()))
		return order, nil
	}

	s.logger.Warn("Order transition gave up after repeated conflicts",
		zap.String("order_id", id.String()),
		zap.String("action", action))
	return nil, shared.ErrConcurrencyConflict
}

func (s *OrderService) respond(p identity.Principal, order *fulfilment.Order, err error) (*OrderResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order, access.CanWrite(p, order))
	return &resp, nil
}
