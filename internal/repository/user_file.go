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

// fileUserRepository mirrors fileProductRepository for users: in-memory
// source of truth, full rewrite after every mutation, one record per line as
// id,username,password,role. Same unescaped-comma limitation as products.
type fileUserRepository struct {
	mem  *memoryUserRepository
	path string
	mu   sync.Mutex
}

// NewFileUserRepository creates a file-backed user store, loading any
// existing records from path.
func NewFileUserRepository(path string) (UserRepository, error) {
	r := &fileUserRepository{
		mem:  newMemoryUserRepository(),
		path: path,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileUserRepository) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapBackend("load users", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 4)
		if len(parts) != 4 {
			continue
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		r.mem.restore(&domain.User{
			ID:       id,
			Username: parts[1],
			Password: parts[2],
			Role:     domain.Role(parts[3]),
		})
	}
	return nil
}

func (r *fileUserRepository) persist() error {
	var b strings.Builder
	for _, u := range r.mem.all() {
		fmt.Fprintf(&b, "%d,%s,%s,%s\n", u.ID, u.Username, u.Password, u.Role)
	}

	if err := os.WriteFile(r.path, []byte(b.String()), 0o644); err != nil {
		return wrapBackend("persist users", err)
	}
	return nil
}

func (r *fileUserRepository) Save(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved, err := r.mem.Save(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if err := r.persist(); err != nil {
		r.mem.remove(saved.ID)
		return nil, err
	}
	return saved, nil
}

func (r *fileUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.mem.FindByID(ctx, id)
}

func (r *fileUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.mem.FindByUsername(ctx, username)
}

func (r *fileUserRepository) Count(ctx context.Context) (int64, error) {
	return r.mem.Count(ctx)
}
