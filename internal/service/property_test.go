package service_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"identityrecon/internal/database"
	"identityrecon/internal/database/dbtest"
	"identityrecon/internal/models"
	"identityrecon/internal/service"
)

var (
	propEmails = []string{"", "a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	propPhones = []string{"", "1", "2", "3", "4"}
)

// decodeSubmission maps 0..24 onto an (email, phone) pair from a small
// alphabet so random sequences collide often. The empty pair becomes a@x.com.
func decodeSubmission(n int) (string, string) {
	email, phone := propEmails[n/len(propPhones)], propPhones[n%len(propPhones)]
	if email == "" && phone == "" {
		email = propEmails[1]
	}
	return email, phone
}

func loadContacts(ctx context.Context, db *database.DB) ([]*models.Contact, error) {
	var contacts []*models.Contact
	err := db.Conn.SelectContext(ctx, &contacts,
		`SELECT id, phone_number, email, linked_id, link_precedence, created_at, updated_at, deleted_at
		 FROM contacts ORDER BY id`)
	return contacts, err
}

func checkGraph(contacts []*models.Contact) error {
	byID := make(map[int64]*models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}
	for _, c := range contacts {
		if c.IsPrimary() {
			if c.LinkedID != nil {
				return fmt.Errorf("primary %d links to %d", c.ID, *c.LinkedID)
			}
			continue
		}
		if c.LinkedID == nil {
			return fmt.Errorf("secondary %d has no link", c.ID)
		}
		root, ok := byID[*c.LinkedID]
		if !ok || !root.IsPrimary() {
			return fmt.Errorf("secondary %d links to non-primary %d", c.ID, *c.LinkedID)
		}
	}
	for i, a := range contacts {
		for _, b := range contacts[i+1:] {
			shared := (a.Email != nil && a.EmailValue() == b.EmailValue()) ||
				(a.PhoneNumber != nil && a.PhoneValue() == b.PhoneValue())
			if shared && a.RootID() != b.RootID() {
				return fmt.Errorf("contacts %d and %d share a value but sit in identities %d and %d",
					a.ID, b.ID, a.RootID(), b.RootID())
			}
		}
	}
	return nil
}

func TestIdentifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("random submission sequences keep a consistent forest", prop.ForAll(
		func(seq []int) bool {
			ctx := context.Background()
			db := dbtest.NewSQLite(t)
			svc := service.NewReconciliationService(db)

			var last *models.IdentifyResponse
			var lastReq models.IdentifyRequest
			for _, n := range seq {
				email, phone := decodeSubmission(n)
				lastReq = req(email, phone)
				resp, err := svc.Identify(ctx, lastReq)
				if err != nil {
					t.Logf("identify(%q, %q): %v", email, phone, err)
					return false
				}
				if email != "" && !slices.Contains(resp.Contact.Emails, email) {
					t.Logf("email %q missing from %+v", email, resp.Contact)
					return false
				}
				if phone != "" && !slices.Contains(resp.Contact.PhoneNumbers, phone) {
					t.Logf("phone %q missing from %+v", phone, resp.Contact)
					return false
				}
				last = resp
			}

			contacts, err := loadContacts(ctx, db)
			if err != nil {
				t.Logf("load contacts: %v", err)
				return false
			}
			if err := checkGraph(contacts); err != nil {
				t.Log(err)
				return false
			}

			again, err := svc.Identify(ctx, lastReq)
			if err != nil {
				return false
			}
			after, err := loadContacts(ctx, db)
			if err != nil {
				return false
			}
			if len(after) != len(contacts) {
				t.Logf("resubmission inserted %d contacts", len(after)-len(contacts))
				return false
			}
			return slices.Equal(last.Contact.Emails, again.Contact.Emails) &&
				slices.Equal(last.Contact.PhoneNumbers, again.Contact.PhoneNumbers) &&
				slices.Equal(last.Contact.SecondaryContactIDs, again.Contact.SecondaryContactIDs) &&
				last.Contact.PrimaryContactID == again.Contact.PrimaryContactID
		},
		gen.SliceOfN(10, gen.IntRange(0, len(propEmails)*len(propPhones)-1)),
	))

	properties.TestingRun(t)
}
