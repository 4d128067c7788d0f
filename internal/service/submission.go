package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"identityrecon/internal/models"
)

var validate = validator.New()

// Submission is a normalized identify request. Empty strings mean absent.
type Submission struct {
	Email       string `validate:"required_without=PhoneNumber"`
	PhoneNumber string `validate:"required_without=Email"`
}

// NewSubmission trims the request and checks that at least one field is set.
func NewSubmission(req models.IdentifyRequest) (Submission, error) {
	n := req.Normalized()
	var sub Submission
	if n.Email != nil {
		sub.Email = *n.Email
	}
	if n.PhoneNumber != nil {
		sub.PhoneNumber = *n.PhoneNumber
	}
	if err := validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return sub, ErrEmailOrPhoneRequired
		}
		return sub, err
	}
	return sub, nil
}

func (s Submission) email() *string {
	if s.Email == "" {
		return nil
	}
	v := s.Email
	return &v
}

func (s Submission) phone() *string {
	if s.PhoneNumber == "" {
		return nil
	}
	v := s.PhoneNumber
	return &v
}

// sharesField reports whether c carries the submitted email or phone number.
func (s Submission) sharesField(c *models.Contact) bool {
	return (s.Email != "" && s.Email == c.EmailValue()) ||
		(s.PhoneNumber != "" && s.PhoneNumber == c.PhoneValue())
}
