package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Auth is the demo identity collaborator: it hands out the user id the
// ledger keys persistence on. Registered users live in the same storage
// backend as accounts; guests get a throwaway id. This is a mock flow, not
// a security boundary.
type Auth struct {
	repo port.Repository
}

func NewAuth(repo port.Repository) *Auth {
	return &Auth{repo: repo}
}

// Register creates a new user keyed by email.
func (a *Auth) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	_, err := a.repo.GetUser(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, port.ErrNotFound):
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}

	u := &domain.User{
		ID:        "u-" + newID(),
		Email:     email,
		Password:  password,
		CreatedAt: time.Now(),
	}
	if err := a.repo.PutUser(ctx, u); err != nil {
		return nil, fmt.Errorf("store user %s: %w", email, err)
	}
	return u, nil
}

// Login checks the stored credentials.
func (a *Auth) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := a.repo.GetUser(ctx, email)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}
	if u.Password != password {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Guest returns an anonymous session user. Nothing is stored until the
// ledger seeds an account for the id.
func (a *Auth) Guest(ctx context.Context) (*domain.User, error) {
	return &domain.User{
		ID:        "guest-" + newID(),
		Anonymous: true,
		CreatedAt: time.Now(),
	}, nil
}
