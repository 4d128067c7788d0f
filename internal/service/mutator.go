package service

import (
	"context"
	"fmt"

	"identityrecon/internal/models"
	"identityrecon/internal/store"
)

// apply performs the plan's writes through cs and returns the resulting view.
// Merge plans must be given a transaction-bound store.
func (s *ReconciliationService) apply(ctx context.Context, cs store.ContactStore, plan *Plan) (*models.ConsolidatedView, error) {
	sub := plan.Submission

	switch plan.Kind {
	case PlanCreatePrimary:
		primary, err := s.insert(ctx, cs, sub, models.LinkPrimary, nil)
		if err != nil {
			return nil, err
		}
		return assembleView(primary.ID, []*models.Contact{primary}), nil

	case PlanAttachOrMerge:
		target := plan.Ultimate.ID
		if err := demote(ctx, cs, plan.Others, target); err != nil {
			return nil, err
		}
		if plan.CreateSecondary {
			if _, err := s.insert(ctx, cs, sub, models.LinkSecondary, &target); err != nil {
				return nil, err
			}
		}
		return identityView(ctx, cs, target)

	case PlanPromotePrimary:
		primary, err := s.insert(ctx, cs, sub, models.LinkPrimary, nil)
		if err != nil {
			return nil, err
		}
		if err := demote(ctx, cs, plan.Demoted(), primary.ID); err != nil {
			return nil, err
		}
		return identityView(ctx, cs, primary.ID)
	}

	return nil, fmt.Errorf("unknown plan kind %q", plan.Kind)
}

func (s *ReconciliationService) insert(ctx context.Context, cs store.ContactStore, sub Submission, precedence models.LinkPrecedence, linkedID *int64) (*models.Contact, error) {
	c, err := cs.InsertContact(ctx, sub.email(), sub.phone(), precedence, linkedID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCreated(string(precedence))
	return c, nil
}

// demote turns each primary into a secondary of target and re-points its own
// secondaries at target, so no secondary ever links to a secondary.
func demote(ctx context.Context, cs store.ContactStore, primaries []*models.Contact, target int64) error {
	for _, p := range primaries {
		if p.ID == target {
			continue
		}
		if err := cs.UpdateLinkage(ctx, p.ID, models.LinkSecondary, &target); err != nil {
			return err
		}
		if err := cs.BulkRelink(ctx, p.ID, target); err != nil {
			return err
		}
	}
	return nil
}

func identityView(ctx context.Context, cs store.ContactStore, primaryID int64) (*models.ConsolidatedView, error) {
	members, err := cs.FindIdentity(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	return assembleView(primaryID, members), nil
}
