package repository

import (
	"context"
	"database/sql"
	"errors"

	"marketplace/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = "id, username, password, role, created_at, updated_at"

// uniqueViolation is the postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

type postgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository creates a user store backed by the users table.
func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

// Save inserts a new user. The username unique constraint maps to
// ErrDuplicateUsername.
func (r *postgresUserRepository) Save(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	if candidate.ID != 0 {
		return nil, ErrIdentityNotAllowed
	}

	query := `
		INSERT INTO users (username, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		candidate.Username,
		candidate.Password,
		candidate.Role,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateUsername
		}
		return nil, wrapBackend("save user", err)
	}
	return saved, nil
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrapBackend("find user by id", err)
	}
	return user, nil
}

func (r *postgresUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, wrapBackend("find user by username", err)
	}
	return user, nil
}

func (r *postgresUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, wrapBackend("count users", err)
	}
	return count, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
