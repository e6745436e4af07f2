// Package common defines shared sentinel errors and small helpers used
// across gophchest packages. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Collection-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate id")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrorValidation = errors.New("validation error")
)
