package product

import (
	"context"
	"strings"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return Product{}, apperror.Validation("title is required")
	}
	if p.Price.IsNegative() || p.SalePrice.IsNegative() {
		return Product{}, apperror.Validation("price must be >= 0")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id int, patch Patch) (Product, error) {
	if patch.IsEmpty() {
		return Product{}, apperror.Validation("nothing to update")
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return Product{}, apperror.Validation("title cannot be empty")
		}
		patch.Title = &t
	}
	if (patch.Price != nil && patch.Price.IsNegative()) || (patch.SalePrice != nil && patch.SalePrice.IsNegative()) {
		return Product{}, apperror.Validation("price must be >= 0")
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
