package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskflow-backend/internal/db"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Users persists account records for registration and login.
type Users interface {
	Create(ctx context.Context, email, username, passwordHash string) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
}

// PostgresUsers stores users in PostgreSQL.
type PostgresUsers struct {
	db *db.DB
}

func NewPostgresUsers(database *db.DB) *PostgresUsers {
	return &PostgresUsers{db: database}
}

func (s *PostgresUsers) Create(ctx context.Context, email, username, passwordHash string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, username, password_hash, created_at
	`, strings.ToLower(email), username, passwordHash)

	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *PostgresUsers) ByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM users WHERE email = $1
	`, strings.ToLower(email))

	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// MemoryUsers is the in-memory Users implementation.
type MemoryUsers struct {
	mu      sync.RWMutex
	byEmail map[string]User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: make(map[string]User)}
}

func (s *MemoryUsers) Create(ctx context.Context, email, username, passwordHash string) (User, error) {
	key := strings.ToLower(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[key]; ok {
		return User{}, ErrUserExists
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        key,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byEmail[key] = u
	return u, nil
}

func (s *MemoryUsers) ByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
