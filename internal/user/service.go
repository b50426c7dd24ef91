package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

const minPasswordLen = 8

type Service struct {
	repo     Repository
	secret   string
	tokenTTL time.Duration
	hashCost int
}

func NewService(repo Repository, secret string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, secret: secret, tokenTTL: tokenTTL, hashCost: bcrypt.DefaultCost}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = sanitizeUser(users[i])
	}
	return users, nil
}

func (s *Service) GetProfile(ctx context.Context, id int) (User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	return sanitizeUser(user), nil
}

func (s *Service) UpdateProfile(ctx context.Context, id int, name, phone string) (User, error) {
	user, err := s.repo.UpdateProfile(ctx, id, strings.TrimSpace(name), strings.TrimSpace(phone))
	if err != nil {
		return User{}, err
	}
	return sanitizeUser(user), nil
}

// Register creates a regular (non-admin) account.
func (s *Service) Register(ctx context.Context, user User) (User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return User{}, apperror.Validation("invalid email")
	}
	if len(user.Password) < minPasswordLen {
		return User{}, apperror.Validation("password must be at least 8 characters")
	}

	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.hashCost)
	if err != nil {
		return User{}, apperror.Persistence("hash password", err)
	}

	user.Password = string(hashed)
	user.IsAdmin = false
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return User{}, err
	}
	return sanitizeUser(created), nil
}

// Authenticate checks the credentials and issues a signed token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.secret, s.tokenTTL, user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return Session{}, apperror.Persistence("failed to generate token", err)
	}
	return Session{User: sanitizeUser(user), Token: token}, nil
}
