// Package repository provides the catalog and user stores. Each store has
// three interchangeable backends behind one interface: in-memory maps,
// flat-file persistence on top of the in-memory indexes, and postgres.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/domain"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("user with this username already exists")
	ErrIdentityNotAllowed = errors.New("identity is assigned by the store and must not be supplied")

	// ErrBackend marks a non-recoverable storage failure. It is propagated,
	// never retried.
	ErrBackend = errors.New("storage backend failure")
)

// ProductRepository defines the catalog store contract. Save assigns a fresh
// identity and rejects candidates that already carry one; Update requires
// the identity to exist. Brand and category lookups are case-insensitive and
// whitespace-trimmed; the price range is inclusive on both bounds.
type ProductRepository interface {
	Save(ctx context.Context, candidate *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindByBrand(ctx context.Context, brand string) ([]*domain.Product, error)
	FindByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	FindByPriceRange(ctx context.Context, min, max float64) ([]*domain.Product, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository defines the user store contract: the same pattern as the
// catalog store with a single unique-key index by username (case-sensitive).
type UserRepository interface {
	Save(ctx context.Context, candidate *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// AuditRepository persists audit events durably. Append-only; there is no
// update or delete.
type AuditRepository interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
	FindAll(ctx context.Context) ([]*domain.AuditEvent, error)
}

// normalize applies the index key normalization: trim then case-fold.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// wrapBackend tags a storage-layer failure as ErrBackend while keeping the
// driver error visible in the message.
func wrapBackend(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrBackend, err)
}
