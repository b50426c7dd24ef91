package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/auth"
	"github.com/wichananm65/park-shop-backend/internal/events"
)

const (
	maxNumberAttempts    = 5
	maxIdempotencyKeyLen = 255
)

var ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")

// CartInvalidator drops cached copies of a user's cart.
type CartInvalidator interface {
	Invalidate(ctx context.Context, userID int)
}

// CheckoutRecorder receives one observation per checkout attempt.
type CheckoutRecorder interface {
	ObserveCheckout(outcome string, d time.Duration)
}

// Engine turns a user's cart into an order.
type Engine struct {
	repo        Repository
	publisher   events.Publisher
	invalidator CartInvalidator
	recorder    CheckoutRecorder
	newNumber   func() (string, error)
	now         func() time.Time
}

type EngineOption func(*Engine)

func WithPublisher(p events.Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

func WithCartInvalidator(i CartInvalidator) EngineOption {
	return func(e *Engine) { e.invalidator = i }
}

func WithRecorder(r CheckoutRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

func NewEngine(repo Repository, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:      repo,
		publisher: events.NopPublisher{},
		newNumber: newOrderNumber,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Checkout places an order for targetUserID from everything in their cart.
// A zero targetUserID means the caller. The order header, its lines and the
// cart deletion commit together or not at all.
func (e *Engine) Checkout(ctx context.Context, caller auth.Identity, targetUserID int, recipient Recipient, idempotencyKey string) (Confirmation, error) {
	start := time.Now()
	conf, err := e.checkout(ctx, caller, targetUserID, recipient, idempotencyKey)
	if e.recorder != nil {
		e.recorder.ObserveCheckout(outcome(conf, err), time.Since(start))
	}
	return conf, err
}

func (e *Engine) checkout(ctx context.Context, caller auth.Identity, targetUserID int, recipient Recipient, key string) (Confirmation, error) {
	userID, err := auth.ResolveTarget(caller, targetUserID)
	if err != nil {
		return Confirmation{}, err
	}
	recipient = recipient.normalized()
	if err := recipient.validate(); err != nil {
		return Confirmation{}, err
	}

	key = strings.TrimSpace(key)
	if len(key) > maxIdempotencyKeyLen {
		return Confirmation{}, apperror.Validation("Idempotency-Key is too long")
	}
	if key != "" {
		if conf, ok, err := e.replay(ctx, userID, key); ok || err != nil {
			return conf, err
		}
	}

	var (
		placed   Order
		replayed bool
	)
	err = e.repo.RunInTx(ctx, func(tx Tx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if key != "" {
			// the lookup above may predate the commit of a same-key request
			number, err := tx.KeyedOrderNumber(ctx, userID, key)
			if err != nil {
				return fmt.Errorf("check idempotency key: %w", err)
			}
			if number != "" {
				replayed = true
				return nil
			}
		}
		lines, err := tx.CartLines(ctx, userID)
		if err != nil {
			return fmt.Errorf("read cart: %w", err)
		}
		if len(lines) == 0 {
			return apperror.EmptyCart()
		}

		number, err := e.allocateNumber(ctx, tx)
		if err != nil {
			return err
		}

		header := Header{
			OrderNumber: number,
			UserID:      userID,
			Consignee:   recipient.Name,
			Tel:         recipient.Phone,
			Address:     recipient.Address,
			Status:      StatusPaid,
			CheckTime:   e.now().UTC(),
		}
		if err := tx.InsertHeader(ctx, header, key); err != nil {
			return fmt.Errorf("insert order header: %w", err)
		}

		items := make([]Line, 0, len(lines))
		for _, cl := range lines {
			l := Line{
				OrderNumber: number,
				ProductID:   cl.ProductID,
				ProductName: cl.Title,
				UnitPrice:   cl.UnitPrice(),
				Qty:         cl.Qty,
				ImgURLs:     append([]string(nil), cl.ImgURLs...),
			}
			if err := tx.InsertLine(ctx, l); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
			items = append(items, l)
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		placed = NewOrder(header, items)
		return nil
	})
	if err != nil {
		var ae *apperror.Error
		if errors.As(err, &ae) {
			return Confirmation{}, err
		}
		return Confirmation{}, apperror.Persistence("checkout failed", err)
	}
	if replayed {
		conf, ok, err := e.replay(ctx, userID, key)
		if err == nil && !ok {
			err = apperror.Persistence("checkout failed", errors.New("idempotent order vanished"))
		}
		return conf, err
	}

	e.afterCommit(ctx, placed)
	return Confirmation{OrderNumber: placed.OrderNumber, Order: placed}, nil
}

func (e *Engine) replay(ctx context.Context, userID int, key string) (Confirmation, bool, error) {
	existing, err := e.repo.FindByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, ErrNotFound) {
		return Confirmation{}, false, nil
	}
	if err != nil {
		return Confirmation{}, false, err
	}
	log.Infow("checkout replayed", "orderNumber", existing.OrderNumber, "userId", userID)
	return Confirmation{OrderNumber: existing.OrderNumber, Order: existing, Replayed: true}, true, nil
}

func (e *Engine) allocateNumber(ctx context.Context, tx Tx) (string, error) {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := e.newNumber()
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		taken, err := tx.OrderNumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !taken {
			return number, nil
		}
		log.Warnw("order number collision", "attempt", attempt)
	}
	return "", ErrOrderNumberExhausted
}

// afterCommit runs the side effects that must never happen inside the
// transaction. None of them can fail the checkout.
func (e *Engine) afterCommit(ctx context.Context, o Order) {
	if e.invalidator != nil {
		e.invalidator.Invalidate(ctx, o.UserID)
	}

	items := make([]events.OrderPlacedItem, len(o.Items))
	for i, l := range o.Items {
		items[i] = events.OrderPlacedItem{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: l.UnitPrice}
	}
	ev := events.NewOrderPlaced(o.OrderNumber, o.UserID, o.TotalAmount, items, o.CheckTime)
	if err := e.publisher.PublishOrderPlaced(ctx, ev); err != nil {
		log.Warnw("order event not published", "orderNumber", o.OrderNumber, "error", err)
	}

	log.Infow("order placed",
		"orderNumber", o.OrderNumber,
		"userId", o.UserID,
		"items", len(o.Items),
		"total", o.TotalAmount.String(),
	)
}

func outcome(conf Confirmation, err error) string {
	switch {
	case err == nil && conf.Replayed:
		return "replayed"
	case err == nil:
		return "created"
	case errors.Is(err, apperror.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, apperror.ErrValidation):
		return "invalid"
	case errors.Is(err, apperror.ErrAuthorization):
		return "forbidden"
	default:
		return "error"
	}
}
