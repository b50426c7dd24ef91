package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
)

func placeOrderFor7(t *testing.T, f *fixture) string {
	t.Helper()
	f.fillCartOfUser7(t)
	conf, err := f.engine.Checkout(context.Background(), auth.Identity{UserID: 7}, 0, recipientA, "")
	require.NoError(t, err)
	return conf.OrderNumber
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	owner := auth.Identity{UserID: 7}
	admin := auth.Identity{UserID: 1, IsAdmin: true}

	tests := []struct {
		name    string
		caller  auth.Identity
		prepare string
		status  string
		wantErr error
	}{
		{name: "unknown status", caller: admin, status: "lost", wantErr: apperror.ErrValidation},
		{name: "owner cancels paid", caller: owner, status: " Cancelled "},
		{name: "owner cannot ship", caller: owner, status: StatusShipped, wantErr: apperror.ErrAuthorization},
		{name: "stranger cannot cancel", caller: auth.Identity{UserID: 8}, status: StatusCancelled, wantErr: apperror.ErrAuthorization},
		{name: "owner cannot cancel shipped", caller: owner, prepare: StatusShipped, status: StatusCancelled, wantErr: apperror.ErrConflict},
		{name: "admin ships", caller: admin, status: StatusShipped},
		{name: "admin reopens cancelled", caller: admin, prepare: StatusCancelled, status: StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := NewService(f.repo)
			number := placeOrderFor7(t, f)
			if tt.prepare != "" {
				_, err := svc.UpdateStatus(ctx, admin, number, tt.prepare)
				require.NoError(t, err)
			}

			o, err := svc.UpdateStatus(ctx, tt.caller, number, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			stored, err := f.repo.Get(ctx, number)
			require.NoError(t, err)
			assert.Equal(t, o.Status, stored.Status)
		})
	}
}

func TestService_GetOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewService(f.repo)
	number := placeOrderFor7(t, f)

	_, err := svc.GetOrder(ctx, auth.Identity{UserID: 7}, number)
	assert.NoError(t, err)
	_, err = svc.GetOrder(ctx, auth.Identity{UserID: 1, IsAdmin: true}, number)
	assert.NoError(t, err)
	_, err = svc.GetOrder(ctx, auth.Identity{UserID: 8}, number)
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
	_, err = svc.GetOrder(ctx, auth.Identity{UserID: 7}, "0000000000")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
