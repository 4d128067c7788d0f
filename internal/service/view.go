package service

import (
	"sort"

	"identityrecon/internal/models"
)

// assembleView builds the consolidated view of one identity: primary first,
// then secondaries by age, with emails and phone numbers deduplicated in that order.
func assembleView(primaryID int64, members []*models.Contact) *models.ConsolidatedView {
	ordered := make([]*models.Contact, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i].ID == primaryID, ordered[j].ID == primaryID
		if pi != pj {
			return pi
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	view := &models.ConsolidatedView{
		PrimaryContactID:    primaryID,
		Emails:              []string{},
		PhoneNumbers:        []string{},
		SecondaryContactIDs: []int64{},
	}
	seenEmails := make(map[string]struct{})
	seenPhones := make(map[string]struct{})

	for _, c := range ordered {
		if c.ID != primaryID {
			view.SecondaryContactIDs = append(view.SecondaryContactIDs, c.ID)
		}
		if e := c.EmailValue(); e != "" {
			if _, ok := seenEmails[e]; !ok {
				seenEmails[e] = struct{}{}
				view.Emails = append(view.Emails, e)
			}
		}
		if p := c.PhoneValue(); p != "" {
			if _, ok := seenPhones[p]; !ok {
				seenPhones[p] = struct{}{}
				view.PhoneNumbers = append(view.PhoneNumbers, p)
			}
		}
	}
	return view
}
