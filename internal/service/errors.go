package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailOrPhoneRequired is returned before any store access when the
	// submission carries neither identifying field.
	ErrEmailOrPhoneRequired = errors.New("email or phone number required")

	// ErrInconsistentData marks a secondary whose linked primary is missing or
	// not primary. It is logged and the contact is left out of resolution.
	ErrInconsistentData = errors.New("inconsistent contact data")
)

// StorageError reports a failed read or unit of work. Whatever was in flight
// has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
