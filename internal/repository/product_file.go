package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"marketplace/internal/domain"
)

// fileProductRepository keeps the in-memory indexed store as the source of
// truth and rewrites the backing file after every successful mutation, one
// record per line: id,name,brand,category,price. The format carries no
// escaping for embedded commas in free-text fields; the loader drops lines
// it cannot parse. This is a known limitation of the inherited layout, kept
// deliberately until a replacement format is agreed.
type fileProductRepository struct {
	mem  *memoryProductRepository
	path string

	// mu serializes mutations so the rewrite always captures a consistent
	// snapshot; reads go straight to the in-memory store.
	mu sync.Mutex
}

// NewFileProductRepository creates a file-backed catalog store, loading any
// existing records from path.
func NewFileProductRepository(path string) (ProductRepository, error) {
	r := &fileProductRepository{
		mem:  newMemoryProductRepository(),
		path: path,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileProductRepository) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapBackend("load products", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 5)
		if len(parts) != 5 {
			continue
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(parts[4], 64)
		if err != nil {
			continue
		}
		r.mem.restore(&domain.Product{
			ID:       id,
			Name:     parts[1],
			Brand:    parts[2],
			Category: parts[3],
			Price:    price,
		})
	}
	return nil
}

func (r *fileProductRepository) persist(ctx context.Context) error {
	products, _ := r.mem.FindAll(ctx)

	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s\n",
			p.ID, p.Name, p.Brand, p.Category,
			strconv.FormatFloat(p.Price, 'f', -1, 64))
	}

	if err := os.WriteFile(r.path, []byte(b.String()), 0o644); err != nil {
		return wrapBackend("persist products", err)
	}
	return nil
}

// Save inserts via the in-memory store and then rewrites the file. A failed
// write rolls the insert back so no operation partially commits.
func (r *fileProductRepository) Save(ctx context.Context, candidate *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved, err := r.mem.Save(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if err := r.persist(ctx); err != nil {
		_, _ = r.mem.DeleteByID(ctx, saved.ID)
		return nil, err
	}
	return saved, nil
}

func (r *fileProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.mem.FindByID(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	updated, err := r.mem.Update(ctx, product)
	if err != nil {
		return nil, err
	}
	if err := r.persist(ctx); err != nil {
		r.mem.restore(old)
		return nil, err
	}
	return updated, nil
}

func (r *fileProductRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.mem.FindByID(ctx, id)
	if err != nil {
		return false, nil
	}
	existed, err := r.mem.DeleteByID(ctx, id)
	if err != nil || !existed {
		return existed, err
	}
	if err := r.persist(ctx); err != nil {
		r.mem.restore(old)
		return false, err
	}
	return true, nil
}

func (r *fileProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.mem.FindByID(ctx, id)
}

func (r *fileProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	return r.mem.FindAll(ctx)
}

func (r *fileProductRepository) FindByBrand(ctx context.Context, brand string) ([]*domain.Product, error) {
	return r.mem.FindByBrand(ctx, brand)
}

func (r *fileProductRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return r.mem.FindByCategory(ctx, category)
}

func (r *fileProductRepository) FindByPriceRange(ctx context.Context, min, max float64) ([]*domain.Product, error) {
	return r.mem.FindByPriceRange(ctx, min, max)
}

func (r *fileProductRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.mem.ExistsByID(ctx, id)
}

func (r *fileProductRepository) Count(ctx context.Context) (int64, error) {
	return r.mem.Count(ctx)
}
