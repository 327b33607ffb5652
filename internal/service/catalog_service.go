// Package service composes the guarded mutation pipeline: access check,
// validation, store operation, then audit and metrics recording, in that
// fixed order for every catalog mutation.
package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/audit"
	"marketplace/internal/domain"
	"marketplace/internal/metrics"
	"marketplace/internal/repository"
	"marketplace/internal/session"
	"marketplace/internal/validation"

	"go.uber.org/zap"
)

var (
	ErrPermissionDenied   = errors.New("permission denied: ADMIN role required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoActiveSession    = errors.New("no active session")
)

// CatalogService orchestrates every catalog operation. Mutations are gated
// on an ADMIN principal in the caller-supplied session; read-only filters
// are open but still audited and timed.
type CatalogService struct {
	products  repository.ProductRepository
	trail     *audit.Trail
	collector *metrics.Collector
	validator *validation.ProductValidator
	logger    *zap.Logger
}

// NewCatalogService creates the catalog pipeline.
func NewCatalogService(
	products repository.ProductRepository,
	trail *audit.Trail,
	collector *metrics.Collector,
	validator *validation.ProductValidator,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		products:  products,
		trail:     trail,
		collector: collector,
		validator: validator,
		logger:    logger,
	}
}

// CreateProduct stores a new product. The candidate must not carry an
// identity; the store assigns one.
func (s *CatalogService) CreateProduct(ctx context.Context, sess *session.Session, candidate *domain.Product) (*domain.Product, error) {
	actorID, err := s.requireAdmin(sess)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(candidate, actorID); err != nil {
		return nil, err
	}

	saved, err := s.products.Save(ctx, candidate)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotAllowed) {
			s.trail.Error(actorID, "ADD_PRODUCT_FAILED",
				fmt.Sprintf("Candidate already carries identity id=%d", candidate.ID))
		}
		return nil, err
	}

	s.trail.Info(actorID, "ADD_PRODUCT",
		fmt.Sprintf("Added product id=%d name=%s", saved.ID, saved.Name))
	s.collector.Increment("product.added")
	s.refreshCountGauge(ctx)
	return saved, nil
}

// UpdateProduct replaces the stored fields of an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, sess *session.Session, product *domain.Product) (*domain.Product, error) {
	actorID, err := s.requireAdmin(sess)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(product, actorID); err != nil {
		return nil, err
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			s.trail.Error(actorID, "UPDATE_FAILED",
				fmt.Sprintf("Product with id=%d does not exist", product.ID))
		}
		return nil, err
	}

	s.trail.Info(actorID, "UPDATE_PRODUCT",
		fmt.Sprintf("Updated product id=%d name=%s", updated.ID, updated.Name))
	s.collector.Increment("product.updated")
	s.refreshCountGauge(ctx)
	return updated, nil
}

// DeleteProduct removes a product by identity.
func (s *CatalogService) DeleteProduct(ctx context.Context, sess *session.Session, id int64) error {
	actorID, err := s.requireAdmin(sess)
	if err != nil {
		return err
	}

	existed, err := s.products.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		s.trail.Error(actorID, "DELETE_PRODUCT_FAILED",
			fmt.Sprintf("Attempted to delete non-existing product id=%d", id))
		return repository.ErrProductNotFound
	}

	s.trail.Info(actorID, "DELETE_PRODUCT", fmt.Sprintf("Product id=%d", id))
	s.collector.Increment("product.deleted")
	s.refreshCountGauge(ctx)
	return nil
}

// FindProductByID returns one product by identity.
func (s *CatalogService) FindProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// ListProducts returns every product.
func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.products.FindAll(ctx)
}

// FindByBrand returns the products of one brand, compared case-insensitively
// and whitespace-trimmed. Open to any caller, but audited and timed.
func (s *CatalogService) FindByBrand(ctx context.Context, sess *session.Session, brand string) ([]*domain.Product, error) {
	stop := s.collector.StartTimer("findByBrand")
	defer stop()

	result, err := s.products.FindByBrand(ctx, brand)
	if err != nil {
		return nil, err
	}
	s.trail.Info(currentID(sess), "FILTER_PRODUCTS", "Filter by brand="+brand)
	return result, nil
}

// FindByCategory returns the products of one category.
func (s *CatalogService) FindByCategory(ctx context.Context, sess *session.Session, category string) ([]*domain.Product, error) {
	stop := s.collector.StartTimer("findByCategory")
	defer stop()

	result, err := s.products.FindByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	s.trail.Info(currentID(sess), "FILTER_PRODUCTS", "Filter by category="+category)
	return result, nil
}

// FindByPriceRange returns products priced within [min, max]. An inverted
// range is rejected here, before the store sees it.
func (s *CatalogService) FindByPriceRange(ctx context.Context, sess *session.Session, min, max float64) ([]*domain.Product, error) {
	if min > max {
		s.trail.Error(currentID(sess), "INVALID_PRICE_RANGE",
			fmt.Sprintf("Invalid price range [%v, %v]", min, max))
		return nil, &validation.Error{Message: "minimum price cannot exceed maximum price"}
	}

	stop := s.collector.StartTimer("findByPriceRange")
	defer stop()

	result, err := s.products.FindByPriceRange(ctx, min, max)
	if err != nil {
		return nil, err
	}
	s.trail.Info(currentID(sess), "FILTER_PRODUCTS",
		fmt.Sprintf("Filter by price range=[%v, %v]", min, max))
	return result, nil
}

// Count returns the number of products and refreshes the product.count gauge.
func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	count, err := s.products.Count(ctx)
	if err != nil {
		return 0, err
	}
	s.collector.SetGauge("product.count", count)
	return count, nil
}

// requireAdmin is the access stage of the pipeline. A missing principal or a
// non-ADMIN role records exactly one ACCESS_DENIED event and stops the
// operation before validation runs.
func (s *CatalogService) requireAdmin(sess *session.Session) (*int64, error) {
	actorID := currentID(sess)
	if sess == nil || !sess.IsAdmin() {
		s.trail.Error(actorID, "ACCESS_DENIED", "Admin role required")
		return actorID, ErrPermissionDenied
	}
	return actorID, nil
}

func (s *CatalogService) refreshCountGauge(ctx context.Context) {
	count, err := s.products.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to refresh product count gauge", zap.Error(err))
		return
	}
	s.collector.SetGauge("product.count", count)
}

func currentID(sess *session.Session) *int64 {
	if sess == nil {
		return nil
	}
	return sess.CurrentID()
}
