package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/internal/domain"
)

// memoryProductRepository is the indexed in-memory catalog store: a primary
// map by id plus secondary indexes by normalized brand and category. A write
// lock covers the primary-map mutation and its index mutations as one unit,
// so readers never observe a product in the primary map that is missing from
// (or duplicated across) its buckets. Empty buckets are removed.
type memoryProductRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*domain.Product
	byBrand    map[string][]int64
	byCategory map[string][]int64
}

// NewMemoryProductRepository creates an empty in-memory catalog store.
func NewMemoryProductRepository() ProductRepository {
	return newMemoryProductRepository()
}

func newMemoryProductRepository() *memoryProductRepository {
	return &memoryProductRepository{
		nextID:     1,
		byID:       make(map[int64]*domain.Product),
		byBrand:    make(map[string][]int64),
		byCategory: make(map[string][]int64),
	}
}

// Save inserts a new product, assigning a fresh identity and both
// timestamps. Candidates that already carry an identity are rejected:
// creation and update are distinct operations.
func (r *memoryProductRepository) Save(ctx context.Context, candidate *domain.Product) (*domain.Product, error) {
	if candidate.ID != 0 {
		return nil, ErrIdentityNotAllowed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := candidate.Clone()
	stored.ID = r.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.nextID++

	r.insertLocked(stored)
	return stored.Clone(), nil
}

// Update replaces the stored fields of an existing product, bumps updatedAt,
// and moves the product between index buckets when its normalized brand or
// category changed.
func (r *memoryProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[product.ID]
	if !ok {
		return nil, ErrProductNotFound
	}

	updated := old.Clone()
	updated.Name = product.Name
	updated.Brand = product.Brand
	updated.Category = product.Category
	updated.Price = product.Price
	updated.UpdatedAt = time.Now()
	if !updated.UpdatedAt.After(old.UpdatedAt) {
		// Clock resolution guard: updatedAt must move forward.
		updated.UpdatedAt = old.UpdatedAt.Add(time.Nanosecond)
	}

	if normalize(old.Brand) != normalize(updated.Brand) {
		removeFromIndex(r.byBrand, normalize(old.Brand), old.ID)
		addToIndex(r.byBrand, normalize(updated.Brand), updated.ID)
	}
	if normalize(old.Category) != normalize(updated.Category) {
		removeFromIndex(r.byCategory, normalize(old.Category), old.ID)
		addToIndex(r.byCategory, normalize(updated.Category), updated.ID)
	}

	r.byID[updated.ID] = updated
	return updated.Clone(), nil
}

// DeleteByID removes the product from the primary map and both indexes. It
// reports whether a row existed.
func (r *memoryProductRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	r.removeLocked(product)
	return true, nil
}

func (r *memoryProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return product.Clone(), nil
}

func (r *memoryProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryProductRepository) FindByBrand(ctx context.Context, brand string) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.byBrand[normalize(brand)]), nil
}

func (r *memoryProductRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.byCategory[normalize(category)]), nil
}

// FindByPriceRange returns products priced within [min, max], both bounds
// inclusive. Range sanity is the pipeline's concern, not the store's.
func (r *memoryProductRepository) FindByPriceRange(ctx context.Context, min, max float64) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Product
	for _, p := range r.byID {
		if p.Price >= min && p.Price <= max {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryProductRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *memoryProductRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// restore inserts a product under its existing identity, replacing any
// current row and advancing the id sequence past it. Used by the file-backed
// loader and by write-rollback paths.
func (r *memoryProductRepository) restore(product *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byID[product.ID]; ok {
		r.removeLocked(old)
	}
	r.insertLocked(product.Clone())
	if product.ID >= r.nextID {
		r.nextID = product.ID + 1
	}
}

func (r *memoryProductRepository) insertLocked(p *domain.Product) {
	r.byID[p.ID] = p
	addToIndex(r.byBrand, normalize(p.Brand), p.ID)
	addToIndex(r.byCategory, normalize(p.Category), p.ID)
}

func (r *memoryProductRepository) removeLocked(p *domain.Product) {
	delete(r.byID, p.ID)
	removeFromIndex(r.byBrand, normalize(p.Brand), p.ID)
	removeFromIndex(r.byCategory, normalize(p.Category), p.ID)
}

func (r *memoryProductRepository) collectLocked(ids []int64) []*domain.Product {
	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

func addToIndex(index map[string][]int64, key string, id int64) {
	index[key] = append(index[key], id)
}

func removeFromIndex(index map[string][]int64, key string, id int64) {
	ids := index[key]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(index, key)
		return
	}
	index[key] = ids
}
