// Package validation holds the structural checks entities must pass before
// they reach storage. Every violation is recorded on the audit trail under
// VALIDATION_ERROR and surfaced to the caller with the same message; nothing
// is coerced silently.
package validation

import (
	"strings"

	"marketplace/internal/audit"
	"marketplace/internal/domain"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 4

// Error reports a rejected entity. The message is surfaced to the caller
// verbatim.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ProductValidator checks candidate products before create and update.
type ProductValidator struct {
	trail *audit.Trail
}

// NewProductValidator creates a validator reporting through the given trail.
func NewProductValidator(trail *audit.Trail) *ProductValidator {
	return &ProductValidator{trail: trail}
}

// Validate rejects nil products, blank name/brand/category, and non-positive
// prices. The actor identity is attached to the audit record when known.
func (v *ProductValidator) Validate(product *domain.Product, actorID *int64) error {
	if product == nil {
		return v.reject(actorID, "product cannot be nil")
	}
	if isBlank(product.Name) {
		return v.reject(actorID, "product name cannot be empty")
	}
	if isBlank(product.Brand) {
		return v.reject(actorID, "product brand cannot be empty")
	}
	if isBlank(product.Category) {
		return v.reject(actorID, "product category cannot be empty")
	}
	if product.Price <= 0 {
		return v.reject(actorID, "product price must be positive")
	}
	return nil
}

func (v *ProductValidator) reject(actorID *int64, message string) error {
	v.trail.Error(actorID, "VALIDATION_ERROR", message)
	return &Error{Message: message}
}

// UserValidator checks candidate users before registration.
type UserValidator struct {
	trail *audit.Trail
}

// NewUserValidator creates a validator reporting through the given trail.
func NewUserValidator(trail *audit.Trail) *UserValidator {
	return &UserValidator{trail: trail}
}

// Validate rejects nil users, blank usernames, and too-short passwords.
func (v *UserValidator) Validate(user *domain.User) error {
	if user == nil {
		return v.reject(nil, "user cannot be nil")
	}
	if isBlank(user.Username) {
		return v.reject(nil, "username cannot be empty")
	}
	if len(user.Password) < MinPasswordLength {
		return v.reject(nil, "password must have at least 4 characters")
	}
	return nil
}

func (v *UserValidator) reject(actorID *int64, message string) error {
	v.trail.Error(actorID, "VALIDATION_ERROR", message)
	return &Error{Message: message}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
