package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"marketplace/internal/domain"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'USER',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			brand VARCHAR(255) NOT NULL,
			category VARCHAR(255) NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			actor_id BIGINT,
			action VARCHAR(100) NOT NULL,
			details TEXT NOT NULL,
			level VARCHAR(10) NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return dbContainer.Terminate, err
		}
	}

	testDB = db
	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		// The memory and file suites in this package do not need the
		// container, so do not abort the run.
		log.Printf("postgres container unavailable, postgres tests will be skipped: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func requirePostgres(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	if _, err := testDB.Exec("TRUNCATE products, users, audit_events RESTART IDENTITY"); err != nil {
		t.Fatalf("could not reset tables: %v", err)
	}
}

func TestPostgresProductLifecycle(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresProductRepository(testDB)
	ctx := context.Background()

	saved, err := repo.Save(ctx, newProduct("XPS 13", "Dell", "Electronics", 1200.0))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("identity was not assigned")
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("timestamps not set on creation")
	}

	changed := saved.Clone()
	changed.Price = 900.0
	updated, err := repo.Update(ctx, changed)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated.UpdatedAt.After(saved.UpdatedAt) {
		t.Errorf("expected updatedAt to advance, got %v then %v", saved.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Error("createdAt must not change on update")
	}

	found, err := repo.FindByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Price != 900.0 {
		t.Errorf("expected price 900.0, got %v", found.Price)
	}

	existed, err := repo.DeleteByID(ctx, saved.ID)
	if err != nil || !existed {
		t.Fatalf("delete failed, existed=%v err=%v", existed, err)
	}
	if _, err := repo.FindByID(ctx, saved.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound after delete, got %v", err)
	}
}

func TestPostgresSaveRejectsCarriedIdentity(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresProductRepository(testDB)

	candidate := newProduct("XPS 13", "Dell", "Electronics", 1200.0)
	candidate.ID = 42

	if _, err := repo.Save(context.Background(), candidate); !errors.Is(err, ErrIdentityNotAllowed) {
		t.Fatalf("expected ErrIdentityNotAllowed, got %v", err)
	}
}

func TestPostgresFindByBrandIsCaseInsensitive(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresProductRepository(testDB)
	ctx := context.Background()

	if _, err := repo.Save(ctx, newProduct("XPS 13", "Dell", "Electronics", 1200.0)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := repo.Save(ctx, newProduct("Latitude", " dell ", "Electronics", 900.0)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for _, query := range []string{"Dell", "dell", "  DELL "} {
		result, err := repo.FindByBrand(ctx, query)
		if err != nil {
			t.Fatalf("FindByBrand(%q) failed: %v", query, err)
		}
		if len(result) != 2 {
			t.Errorf("FindByBrand(%q) returned %d products, expected 2", query, len(result))
		}
	}
}

func TestPostgresFindByPriceRangeIsInclusive(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresProductRepository(testDB)
	ctx := context.Background()

	for _, price := range []float64{50, 200, 800} {
		if _, err := repo.Save(ctx, newProduct("p", "Acme", "Misc", price)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	result, err := repo.FindByPriceRange(ctx, 50, 200)
	if err != nil {
		t.Fatalf("FindByPriceRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected both bounds to be inclusive, got %d products", len(result))
	}
}

func TestPostgresUpdateMissingProduct(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresProductRepository(testDB)

	missing := newProduct("Ghost", "None", "None", 1.0)
	missing.ID = 99999

	if _, err := repo.Update(context.Background(), missing); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestPostgresUserDuplicateUsername(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresUserRepository(testDB)
	ctx := context.Background()

	if _, err := repo.Save(ctx, newUser("alice", "secret", domain.RoleUser)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := repo.Save(ctx, newUser("alice", "other", domain.RoleAdmin)); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	found, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if found.Password != "secret" {
		t.Errorf("first registration must win, got password %q", found.Password)
	}
}

func TestPostgresAuditAppendNewestFirst(t *testing.T) {
	requirePostgres(t)
	repo := NewPostgresAuditRepository(testDB)
	ctx := context.Background()

	actor := int64(1)
	events := []*domain.AuditEvent{
		{Timestamp: time.Now(), ActorID: &actor, Action: "LOGIN", Details: "first", Level: domain.AuditInfo},
		{Timestamp: time.Now(), Action: "LOGIN_FAILED", Details: "second", Level: domain.AuditError},
	}
	for _, e := range events {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	stored, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 events, got %d", len(stored))
	}
	if stored[0].Details != "second" || stored[1].Details != "first" {
		t.Errorf("expected newest-first ordering, got %q then %q", stored[0].Details, stored[1].Details)
	}
	if stored[1].ActorID == nil || *stored[1].ActorID != actor {
		t.Error("actor id was not persisted")
	}
	if stored[0].ActorID != nil {
		t.Error("anonymous event must keep a nil actor id")
	}
}
