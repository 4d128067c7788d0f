package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"identityrecon/internal/logger"
	"identityrecon/internal/metrics"
	"identityrecon/internal/models"
	"identityrecon/internal/store"
)

// ReconciliationService handles identity reconciliation logic
type ReconciliationService struct {
	store   store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a ReconciliationService
type Option func(*ReconciliationService)

// WithLogger sets the logger; the default discards everything
func WithLogger(l *zap.Logger) Option {
	return func(s *ReconciliationService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink; nil disables metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReconciliationService) {
		s.metrics = m
	}
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(st store.Store, opts ...Option) *ReconciliationService {
	s := &ReconciliationService{store: st, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify resolves the submitted email/phone pair to an identity, creating,
// attaching or merging contacts as needed, and returns the consolidated view.
//
// A submission with no overlap is a single insert. Otherwise the overlap read,
// resolution and every write run in one unit of work, so the plan is decided
// against the same state it mutates.
func (s *ReconciliationService) Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error) {
	sub, err := NewSubmission(req)
	if err != nil {
		s.metrics.ObserveFailure("validation")
		return nil, err
	}

	overlaps, err := s.findOverlaps(ctx, s.store, sub)
	if err != nil {
		return nil, s.storageFailure("find overlaps", err)
	}

	var (
		plan *Plan
		view *models.ConsolidatedView
	)
	if len(overlaps) == 0 {
		plan = &Plan{Kind: PlanCreatePrimary, Submission: sub}
		view, err = s.apply(ctx, s.store, plan)
		if err != nil {
			return nil, s.storageFailure("create primary", err)
		}
	} else {
		err = s.store.RunAtomic(ctx, func(tx store.ContactStore) error {
			current, err := s.findOverlaps(ctx, tx, sub)
			if err != nil {
				return err
			}
			plan, err = s.resolve(ctx, tx, current, sub)
			if err != nil {
				return err
			}
			view, err = s.apply(ctx, tx, plan)
			return err
		})
		if err != nil {
			return nil, s.storageFailure("reconcile identity", err)
		}
	}

	s.record(plan, view)
	return models.NewIdentifyResponse(view), nil
}

// findOverlaps returns every contact sharing the submitted email or phone number
func (s *ReconciliationService) findOverlaps(ctx context.Context, cs store.ContactStore, sub Submission) ([]*models.Contact, error) {
	return cs.FindByEmailOrPhone(ctx, sub.email(), sub.phone())
}

func (s *ReconciliationService) record(plan *Plan, view *models.ConsolidatedView) {
	outcome := plan.Outcome()
	s.metrics.ObserveResolution(outcome)

	demoted := plan.Demoted()
	s.metrics.AddDemoted(len(demoted))
	if len(demoted) > 0 {
		ids := make([]int64, 0, len(demoted))
		for _, c := range demoted {
			ids = append(ids, c.ID)
		}
		s.logger.Info("identities merged",
			zap.String(logger.FieldPlan, string(plan.Kind)),
			zap.Int64(logger.FieldPrimaryID, view.PrimaryContactID),
			zap.Int64s(logger.FieldDemotedIDs, ids),
		)
		return
	}
	s.logger.Debug("identity resolved",
		zap.String(logger.FieldPlan, string(plan.Kind)),
		zap.String("outcome", outcome),
		zap.Int64(logger.FieldPrimaryID, view.PrimaryContactID),
	)
}

func (s *ReconciliationService) storageFailure(op string, err error) error {
	reason := "storage"
	if errors.Is(err, store.ErrConflict) {
		reason = "conflict"
	}
	s.metrics.ObserveFailure(reason)
	s.logger.Error("identify failed",
		zap.String(logger.FieldOp, op),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return &StorageError{Op: op, Err: err}
}
