package order

import (
	"context"
	"strings"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

// Service provides order queries and status changes.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// ListOrders returns the orders of targetUserID (the caller when zero),
// newest first.
func (s *Service) ListOrders(ctx context.Context, caller auth.Identity, targetUserID int) ([]Order, error) {
	userID, err := auth.ResolveTarget(caller, targetUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) GetOrder(ctx context.Context, caller auth.Identity, number string) (Order, error) {
	o, err := s.repo.Get(ctx, number)
	if err != nil {
		return Order{}, err
	}
	if !caller.CanActFor(o.UserID) {
		return Order{}, apperror.Authorization("not your order")
	}
	return o, nil
}

// UpdateStatus moves an order to status. Admins may set any known status.
// Owners may only cancel, and only while the order is still paid.
func (s *Service) UpdateStatus(ctx context.Context, caller auth.Identity, number, status string) (Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validStatuses[status] {
		return Order{}, apperror.Validation("status must be one of paid, processing, shipped, completed, cancelled")
	}

	o, err := s.repo.Get(ctx, number)
	if err != nil {
		return Order{}, err
	}

	from := ""
	if !caller.IsAdmin {
		if o.UserID != caller.UserID {
			return Order{}, apperror.Authorization("not your order")
		}
		if status != StatusCancelled {
			return Order{}, apperror.Authorization("only an admin can set status " + status)
		}
		if o.Status != StatusPaid {
			return Order{}, apperror.Conflict("only paid orders can be cancelled")
		}
		from = StatusPaid
	}

	changed, err := s.repo.UpdateStatus(ctx, number, from, status)
	if err != nil {
		return Order{}, err
	}
	if !changed {
		return Order{}, apperror.Conflict("order status changed, reload and retry")
	}
	o.Status = status
	return o, nil
}
