package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates a login attempt that matched no account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDeactivated indicates a correct login against a disabled account.
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrEmailNotFound indicates a password-reset request for an unknown email.
	ErrEmailNotFound = errors.New("email not found")
	// ErrOTPNotFound indicates no pending code exists for the identity and purpose.
	ErrOTPNotFound = errors.New("otp not found")
	// ErrOTPExpired indicates the pending code outlived its validity window.
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPMismatch indicates the submitted code differs from the pending one.
	ErrOTPMismatch = errors.New("otp mismatch")
	// ErrNotAuthenticated indicates an operation that requires an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrHashing indicates the password digest primitive failed.
	ErrHashing = errors.New("hashing failure")
	// ErrRepository indicates a persistence failure.
	ErrRepository = errors.New("repository error")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIdentity matches any DuplicateIdentityError via errors.Is.
	ErrDuplicateIdentity = errors.New("identity already registered")
)

type DuplicateField string

const (
	FieldEmail    DuplicateField = "email"
	FieldUsername DuplicateField = "username"
)

// DuplicateIdentityError reports which identity field collided, so callers
// can distinguish a taken username from a taken email without inspecting
// message text.
type DuplicateIdentityError struct {
	Field DuplicateField
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// DuplicateIdentity builds a DuplicateIdentityError for the given field.
func DuplicateIdentity(field DuplicateField) error {
	return &DuplicateIdentityError{Field: field}
}
