package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"identityrecon/internal/logger"
	"identityrecon/internal/models"
	"identityrecon/internal/store"
)

// PlanKind is the transform chosen for a submission.
type PlanKind string

const (
	PlanCreatePrimary  PlanKind = "create_primary"
	PlanAttachOrMerge  PlanKind = "attach_or_merge"
	PlanPromotePrimary PlanKind = "promote_primary"
)

// Plan is the resolver's decision, applied by the graph mutator.
//
// For PlanAttachOrMerge, Others are demoted under Ultimate and a secondary
// carrying the submission is added when CreateSecondary is set. For
// PlanPromotePrimary the submission becomes a new primary and Ultimate plus
// Others are demoted under it.
type Plan struct {
	Kind            PlanKind
	Submission      Submission
	Ultimate        *models.Contact
	Others          []*models.Contact
	CreateSecondary bool
}

// Outcome is a short label for logs and metrics.
func (p *Plan) Outcome() string {
	switch p.Kind {
	case PlanCreatePrimary:
		return "created"
	case PlanPromotePrimary:
		return "promoted"
	}
	switch {
	case len(p.Others) > 0:
		return "merged"
	case p.CreateSecondary:
		return "attached"
	default:
		return "unchanged"
	}
}

// Demoted lists the primaries this plan turns into secondaries.
func (p *Plan) Demoted() []*models.Contact {
	switch p.Kind {
	case PlanAttachOrMerge:
		return p.Others
	case PlanPromotePrimary:
		return append([]*models.Contact{p.Ultimate}, p.Others...)
	}
	return nil
}

// resolve finds the identities touched by overlaps and decides the plan.
func (s *ReconciliationService) resolve(ctx context.Context, cs store.ContactStore, overlaps []*models.Contact, sub Submission) (*Plan, error) {
	roots, err := s.rootPrimaries(ctx, cs, overlaps)
	if err != nil {
		return nil, err
	}

	var members []*models.Contact
	for _, root := range roots {
		identity, err := cs.FindIdentity(ctx, root.ID)
		if err != nil {
			return nil, err
		}
		members = append(members, identity...)
	}

	return decide(sub, roots, members), nil
}

// rootPrimaries maps each overlapping contact to its primary, fetching
// primaries the overlap query did not return. Deduplicated, discovery order.
func (s *ReconciliationService) rootPrimaries(ctx context.Context, cs store.ContactStore, overlaps []*models.Contact) ([]*models.Contact, error) {
	byID := make(map[int64]*models.Contact, len(overlaps))
	for _, c := range overlaps {
		byID[c.ID] = c
	}

	seen := make(map[int64]bool)
	var roots []*models.Contact
	for _, c := range overlaps {
		rootID := c.RootID()
		if seen[rootID] {
			continue
		}
		seen[rootID] = true

		root, ok := byID[rootID]
		if !ok {
			fetched, err := cs.FindByID(ctx, rootID)
			if errors.Is(err, store.ErrNotFound) {
				s.inconsistent(c, rootID, "linked primary not found")
				continue
			}
			if err != nil {
				return nil, err
			}
			root = fetched
		}
		if !root.IsPrimary() {
			s.inconsistent(c, rootID, "linked contact is not primary")
			continue
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func (s *ReconciliationService) inconsistent(c *models.Contact, rootID int64, reason string) {
	s.logger.Warn("skipping contact with broken link",
		zap.Int64(logger.FieldContactID, c.ID),
		zap.Int64(logger.FieldPrimaryID, rootID),
		zap.Error(fmt.Errorf("%w: %s", ErrInconsistentData, reason)),
	)
}

// decide classifies a submission given the primaries it touched and every
// member of their identities.
func decide(sub Submission, roots, members []*models.Contact) *Plan {
	if len(roots) == 0 {
		return &Plan{Kind: PlanCreatePrimary, Submission: sub}
	}

	ordered := oldestFirst(roots)
	ultimate, others := ordered[0], ordered[1:]
	newInfo := hasNewInformation(members, sub)

	// a single identity that already holds every submitted value is returned as is
	if len(others) == 0 && !newInfo {
		return &Plan{Kind: PlanAttachOrMerge, Submission: sub, Ultimate: ultimate}
	}

	if sub.sharesField(ultimate) {
		return &Plan{
			Kind:            PlanAttachOrMerge,
			Submission:      sub,
			Ultimate:        ultimate,
			Others:          others,
			CreateSecondary: newInfo,
		}
	}

	return &Plan{
		Kind:       PlanPromotePrimary,
		Submission: sub,
		Ultimate:   ultimate,
		Others:     others,
	}
}

// oldestFirst sorts a copy by createdAt, breaking ties by id (insertion order).
func oldestFirst(contacts []*models.Contact) []*models.Contact {
	sorted := make([]*models.Contact, len(contacts))
	copy(sorted, contacts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// hasNewInformation checks if the submission carries an email or phone number
// that no member already has
func hasNewInformation(members []*models.Contact, sub Submission) bool {
	existingEmails := make(map[string]bool)
	existingPhones := make(map[string]bool)

	for _, c := range members {
		if c.Email != nil {
			existingEmails[*c.Email] = true
		}
		if c.PhoneNumber != nil {
			existingPhones[*c.PhoneNumber] = true
		}
	}

	if sub.Email != "" && !existingEmails[sub.Email] {
		return true
	}
	if sub.PhoneNumber != "" && !existingPhones[sub.PhoneNumber] {
		return true
	}
	return false
}
