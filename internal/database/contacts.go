package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"identityrecon/internal/models"
	"identityrecon/internal/store"
)

const contactColumns = `id, phone_number, email, linked_id, link_precedence, created_at, updated_at, deleted_at`

// ContactRepo runs contact queries against either the pool or an open transaction.
type ContactRepo struct {
	ext     sqlx.ExtContext
	dialect Dialect
	now     func() time.Time
}

func newContactRepo(ext sqlx.ExtContext, dialect Dialect) *ContactRepo {
	return &ContactRepo{ext: ext, dialect: dialect, now: time.Now}
}

var _ store.ContactStore = (*ContactRepo)(nil)

// timestamp returns the current time at the precision every backend keeps.
func (r *ContactRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// FindByEmailOrPhone queries contacts by email OR phone number
func (r *ContactRepo) FindByEmailOrPhone(ctx context.Context, email, phoneNumber *string) ([]*models.Contact, error) {
	var conds []string
	var args []any
	if email != nil {
		conds = append(conds, "email = ?")
		args = append(args, *email)
	}
	if phoneNumber != nil {
		conds = append(conds, "phone_number = ?")
		args = append(args, *phoneNumber)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := `SELECT ` + contactColumns + `
			  FROM contacts
			  WHERE deleted_at IS NULL AND (` + strings.Join(conds, " OR ") + `)
			  ORDER BY created_at, id`
	contacts, err := r.queryContacts(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find contacts by email or phone: %w", err)
	}
	return contacts, nil
}

// FindByID returns one live contact or store.ErrNotFound
func (r *ContactRepo) FindByID(ctx context.Context, id int64) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ? AND deleted_at IS NULL`
	var c models.Contact
	if err := sqlx.GetContext(ctx, r.ext, &c, r.ext.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find contact %d: %w", id, classify(err))
	}
	return &c, nil
}

// InsertContact creates a contact and returns it with id and timestamps assigned
func (r *ContactRepo) InsertContact(ctx context.Context, email, phoneNumber *string, precedence models.LinkPrecedence, linkedID *int64) (*models.Contact, error) {
	query := `INSERT INTO contacts (phone_number, email, linked_id, link_precedence, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

	now := r.timestamp()
	var id int64
	err := r.ext.QueryRowxContext(ctx, r.ext.Rebind(query), phoneNumber, email, linkedID, string(precedence), now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert %s contact: %w", precedence, classify(err))
	}

	return &models.Contact{
		ID:             id,
		PhoneNumber:    phoneNumber,
		Email:          email,
		LinkedID:       linkedID,
		LinkPrecedence: precedence,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// UpdateLinkage updates a contact's link_precedence and linked_id
func (r *ContactRepo) UpdateLinkage(ctx context.Context, contactID int64, precedence models.LinkPrecedence, linkedID *int64) error {
	query := `UPDATE contacts SET link_precedence = ?, linked_id = ?, updated_at = ?
			  WHERE id = ? AND deleted_at IS NULL`
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(query), string(precedence), linkedID, r.timestamp(), contactID)
	if err != nil {
		return fmt.Errorf("update linkage of contact %d: %w", contactID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update linkage of contact %d: %w", contactID, err)
	}
	if n == 0 {
		return fmt.Errorf("contact %d: %w", contactID, store.ErrNotFound)
	}
	return nil
}

// BulkRelink re-points every secondary of oldLinkedID to newLinkedID
func (r *ContactRepo) BulkRelink(ctx context.Context, oldLinkedID, newLinkedID int64) error {
	query := `UPDATE contacts SET linked_id = ?, link_precedence = ?, updated_at = ?
			  WHERE linked_id = ? AND deleted_at IS NULL`
	_, err := r.ext.ExecContext(ctx, r.ext.Rebind(query), newLinkedID, string(models.LinkSecondary), r.timestamp(), oldLinkedID)
	if err != nil {
		return fmt.Errorf("relink secondaries of %d to %d: %w", oldLinkedID, newLinkedID, classify(err))
	}
	return nil
}

// FindIdentity gets the primary contact and all secondary contacts, primary first
func (r *ContactRepo) FindIdentity(ctx context.Context, primaryID int64) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + `
			  FROM contacts
			  WHERE (id = ? OR linked_id = ?) AND deleted_at IS NULL
			  ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END, created_at, id`
	contacts, err := r.queryContacts(ctx, query, primaryID, primaryID, primaryID)
	if err != nil {
		return nil, fmt.Errorf("find identity of %d: %w", primaryID, err)
	}
	return contacts, nil
}

// queryContacts executes a query and returns contacts
func (r *ContactRepo) queryContacts(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	var contacts []*models.Contact
	if err := sqlx.SelectContext(ctx, r.ext, &contacts, r.ext.Rebind(query), args...); err != nil {
		return nil, classify(err)
	}
	return contacts, nil
}

// classify tags serialization and lock failures with store.ErrConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
		return err
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
	}
	return err
}
