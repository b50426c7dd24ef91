package address

import (
	"context"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

// Service orchestrates saved addresses of one user.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID int) ([]Address, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, addressID int) (Address, error) {
	if addressID <= 0 {
		return Address{}, ErrNotFound
	}
	return s.repo.Get(ctx, userID, addressID)
}

func (s *Service) Add(ctx context.Context, userID int, f Fields) (Address, error) {
	f = f.normalized()
	if err := f.validate(); err != nil {
		return Address{}, err
	}
	return s.repo.Add(ctx, userID, f)
}

func (s *Service) Update(ctx context.Context, userID, addressID int, f Fields) (Address, error) {
	if addressID <= 0 {
		return Address{}, apperror.Validation("invalid addressId")
	}
	f = f.normalized()
	if err := f.validate(); err != nil {
		return Address{}, err
	}
	return s.repo.Update(ctx, userID, addressID, f)
}

func (s *Service) Delete(ctx context.Context, userID, addressID int) error {
	if addressID <= 0 {
		return apperror.Validation("invalid addressId")
	}
	return s.repo.Delete(ctx, userID, addressID)
}
