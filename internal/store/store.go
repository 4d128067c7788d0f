// Package store defines the storage collaborator the reconciliation core runs against.
package store

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

import (
	"context"
	"errors"

	"identityrecon/internal/models"
)

// Sentinel errors for infrastructure facts. Implementations return these
// (optionally wrapped) so the service can tell them apart from other failures.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ContactStore is the set of contact operations available both inside and
// outside a unit of work.
type ContactStore interface {
	// FindByEmailOrPhone returns every live contact whose email equals email or
	// whose phone number equals phoneNumber. A nil argument never matches.
	FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]*models.Contact, error)
	FindByID(ctx context.Context, id int64) (*models.Contact, error)
	InsertContact(ctx context.Context, email, phoneNumber *string, precedence models.LinkPrecedence, linkedID *int64) (*models.Contact, error)
	UpdateLinkage(ctx context.Context, contactID int64, precedence models.LinkPrecedence, linkedID *int64) error
	// BulkRelink points every contact linked to oldLinkedID at newLinkedID.
	BulkRelink(ctx context.Context, oldLinkedID, newLinkedID int64) error
	// FindIdentity returns the primary and all of its secondaries.
	FindIdentity(ctx context.Context, primaryID int64) ([]*models.Contact, error)
}

// Transactor runs fn as one all-or-nothing unit of work. The store handed to fn
// is bound to the transaction; any error returned by fn rolls everything back.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(tx ContactStore) error) error
}

// Store is the full storage collaborator.
type Store interface {
	ContactStore
	Transactor
}
