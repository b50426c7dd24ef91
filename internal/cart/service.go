package cart

import (
	"context"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/product"
)

// ProductLookup is the part of the catalog the cart needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id int) (product.Product, error)
}

// Service orchestrates cart operations. Every mutation returns the cart as
// it looks afterwards.
type Service struct {
	repo     Repository
	products ProductLookup
}

func NewService(repo Repository, products ProductLookup) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) GetCart(ctx context.Context, userID int) ([]Line, error) {
	return s.repo.GetCart(ctx, userID)
}

func (s *Service) AddToCart(ctx context.Context, userID, productID, qty int) ([]Line, error) {
	if qty <= 0 {
		return nil, apperror.Validation("qty must be a positive integer")
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Sell {
		return nil, apperror.Validation("product is not available for sale")
	}
	if err := s.repo.Upsert(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.repo.GetCart(ctx, userID)
}

// SetQuantity overwrites the quantity of an existing line. Zero removes it.
func (s *Service) SetQuantity(ctx context.Context, userID, productID, qty int) ([]Line, error) {
	var err error
	switch {
	case qty < 0:
		return nil, apperror.Validation("qty must not be negative")
	case qty == 0:
		err = s.repo.Remove(ctx, userID, productID)
	default:
		err = s.repo.SetQuantity(ctx, userID, productID, qty)
	}
	if err != nil {
		return nil, err
	}
	return s.repo.GetCart(ctx, userID)
}

func (s *Service) RemoveLine(ctx context.Context, userID, productID int) ([]Line, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.repo.GetCart(ctx, userID)
}
