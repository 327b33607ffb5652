package repository

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/domain"
)

// memoryUserRepository is the in-memory user store: primary map by id with a
// single unique-key index by username. Usernames compare case-sensitively.
type memoryUserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*domain.User
	byUsername map[string]int64
}

// NewMemoryUserRepository creates an empty in-memory user store.
func NewMemoryUserRepository() UserRepository {
	return newMemoryUserRepository()
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		nextID:     1,
		byID:       make(map[int64]*domain.User),
		byUsername: make(map[string]int64),
	}
}

// Save inserts a new user, assigning a fresh identity. Candidates carrying
// an identity or an already-taken username are rejected.
func (r *memoryUserRepository) Save(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	if candidate.ID != 0 {
		return nil, ErrIdentityNotAllowed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[candidate.Username]; taken {
		return nil, ErrDuplicateUsername
	}

	now := time.Now()
	stored := candidate.Clone()
	stored.ID = r.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.nextID++

	r.byID[stored.ID] = stored
	r.byUsername[stored.Username] = stored.ID
	return stored.Clone(), nil
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (r *memoryUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// restore inserts a user under its existing identity, advancing the id
// sequence past it. Used by the file-backed loader.
func (r *memoryUserRepository) restore(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := user.Clone()
	r.byID[stored.ID] = stored
	r.byUsername[stored.Username] = stored.ID
	if stored.ID >= r.nextID {
		r.nextID = stored.ID + 1
	}
}

// remove deletes a user; rollback path for failed file writes.
func (r *memoryUserRepository) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byUsername, user.Username)
}

// all returns every user sorted by id; snapshot source for the file backend.
func (r *memoryUserRepository) all() []*domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.byID))
	for id := int64(1); id < r.nextID; id++ {
		if u, ok := r.byID[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out
}
