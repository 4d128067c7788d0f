package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LinkPrecedence marks a contact as the root of its identity or as subordinate to one
type LinkPrecedence string

const (
	LinkPrimary   LinkPrecedence = "primary"
	LinkSecondary LinkPrecedence = "secondary"
)

// Contact represents a customer contact in the database
type Contact struct {
	ID             int64          `db:"id" json:"id"`
	PhoneNumber    *string        `db:"phone_number" json:"phoneNumber,omitempty"`
	Email          *string        `db:"email" json:"email,omitempty"`
	LinkedID       *int64         `db:"linked_id" json:"linkedId,omitempty"`
	LinkPrecedence LinkPrecedence `db:"link_precedence" json:"linkPrecedence"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
	DeletedAt      *time.Time     `db:"deleted_at" json:"deletedAt,omitempty"`
}

// IsPrimary reports whether the contact is the root of its identity
func (c *Contact) IsPrimary() bool {
	return c.LinkPrecedence == LinkPrimary
}

// RootID returns the id of the primary this contact belongs to
func (c *Contact) RootID() int64 {
	if c.IsPrimary() || c.LinkedID == nil {
		return c.ID
	}
	return *c.LinkedID
}

// EmailValue returns the email or "" when unset
func (c *Contact) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone number or "" when unset
func (c *Contact) PhoneValue() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}

// IdentifyRequest represents the incoming request body
type IdentifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

// UnmarshalJSON accepts phoneNumber as either a JSON string or a JSON number.
func (r *IdentifyRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Email       *string         `json:"email"`
		PhoneNumber json.RawMessage `json:"phoneNumber"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Email = raw.Email
	r.PhoneNumber = nil

	phone := bytes.TrimSpace(raw.PhoneNumber)
	if len(phone) == 0 || bytes.Equal(phone, []byte("null")) {
		return nil
	}
	switch phone[0] {
	case '"':
		var s string
		if err := json.Unmarshal(phone, &s); err != nil {
			return err
		}
		r.PhoneNumber = &s
	default:
		var n json.Number
		if err := json.Unmarshal(phone, &n); err != nil {
			return fmt.Errorf("phoneNumber must be a string or number: %w", err)
		}
		s := n.String()
		r.PhoneNumber = &s
	}
	return nil
}

// Normalized returns trimmed copies of both fields, with blanks as nil.
func (r IdentifyRequest) Normalized() IdentifyRequest {
	return IdentifyRequest{
		Email:       trimmed(r.Email),
		PhoneNumber: trimmed(r.PhoneNumber),
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// ConsolidatedView is the merged picture of one identity
type ConsolidatedView struct {
	PrimaryContactID    int64
	Emails              []string
	PhoneNumbers        []string
	SecondaryContactIDs []int64
}

// ContactResponse represents the contact data in the response
type ContactResponse struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}

// IdentifyResponse represents the response body
type IdentifyResponse struct {
	Contact ContactResponse `json:"contact"`
}

// NewIdentifyResponse wraps a view in the response envelope. Nil slices become empty arrays.
func NewIdentifyResponse(v *ConsolidatedView) *IdentifyResponse {
	resp := &IdentifyResponse{
		Contact: ContactResponse{
			PrimaryContactID:    v.PrimaryContactID,
			Emails:              v.Emails,
			PhoneNumbers:        v.PhoneNumbers,
			SecondaryContactIDs: v.SecondaryContactIDs,
		},
	}
	if resp.Contact.Emails == nil {
		resp.Contact.Emails = []string{}
	}
	if resp.Contact.PhoneNumbers == nil {
		resp.Contact.PhoneNumbers = []string{}
	}
	if resp.Contact.SecondaryContactIDs == nil {
		resp.Contact.SecondaryContactIDs = []int64{}
	}
	return resp
}
