// Package domain holds the shared domain types and the error taxonomy used
// across the movement engine. Handlers map these error kinds to HTTP status
// codes; repositories and services return them instead of bare nils or
// silently-empty results.
package domain

import (
	"errors"
	"fmt"
)

// FieldError indicates an error with a specific request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a request before any write. It always names the
// offending fields so the caller gets an actionable message.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

// AuthzError rejects a request with a missing or out-of-organization
// credential before any lookup happens.
type AuthzError struct {
	Reason string
}

func NewAuthzError(reason string) *AuthzError {
	return &AuthzError{Reason: reason}
}

func (e *AuthzError) Error() string {
	return "authorization failed: " + e.Reason
}

// IntegrityError means stored state violates an invariant: a movement group
// that does not resolve to exactly two rows, an attachment pointing at a
// missing movement, a malformed taxonomy tree. It aborts the operation.
type IntegrityError struct {
	Entity string
	ID     string
	Detail string
}

func NewIntegrityError(entity, id, detail string) *IntegrityError {
	return &IntegrityError{Entity: entity, ID: id, Detail: detail}
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s %s: %s", e.Entity, e.ID, e.Detail)
}

// DownstreamError wraps a backing-store failure. It propagates as a generic
// failure with no retry.
type DownstreamError struct {
	Op  string
	Err error
}

func NewDownstreamError(op string, err error) *DownstreamError {
	return &DownstreamError{Op: op, Err: err}
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream failure during %s: %v", e.Op, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuthz reports whether err is an AuthzError.
func IsAuthz(err error) bool {
	var a *AuthzError
	return errors.As(err, &a)
}

// IsIntegrity reports whether err is an IntegrityError.
func IsIntegrity(err error) bool {
	var i *IntegrityError
	return errors.As(err, &i)
}

// IsDownstream reports whether err is a DownstreamError.
func IsDownstream(err error) bool {
	var d *DownstreamError
	return errors.As(err, &d)
}
