package order

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/cart"
)

var (
	ErrNotFound = apperror.NotFound("order not found")
)

// Tx is what checkout may do inside its transaction.
type Tx interface {
	// LockUser serializes checkouts of the same user until the transaction ends.
	LockUser(ctx context.Context, userID int) error
	// KeyedOrderNumber returns the order placed under key, or "" when none.
	KeyedOrderNumber(ctx context.Context, userID int, key string) (string, error)
	CartLines(ctx context.Context, userID int) ([]cart.Line, error)
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	InsertHeader(ctx context.Context, h Header, idempotencyKey string) error
	InsertLine(ctx context.Context, l Line) error
	ClearCart(ctx context.Context, userID int) error
}

// Repository defines persistence operations for orders.
type Repository interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(Tx) error) error
	FindByIdempotencyKey(ctx context.Context, userID int, key string) (Order, error)
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	Get(ctx context.Context, number string) (Order, error)
	// UpdateStatus sets the status when the current one equals from, or
	// unconditionally when from is empty. It reports whether a row changed.
	UpdateStatus(ctx context.Context, number, from, to string) (bool, error)
}

// CartStore is the cart access the in-memory repository needs.
type CartStore interface {
	GetCart(ctx context.Context, userID int) ([]cart.Line, error)
	Clear(ctx context.Context, userID int) error
}

var errSimulatedFailure = errors.New("simulated persistence failure")

type idempotencyKey struct {
	userID int
	key    string
}

// InMemoryRepository is used for tests and local scenarios. Transactions are
// serialized by a mutex and writes are staged until commit.
type InMemoryRepository struct {
	mu     sync.Mutex
	carts  CartStore
	orders map[string]Order
	keys   map[idempotencyKey]string

	// failAt makes the named Tx step ("header", "line", "clear") fail.
	failAt string
}

func NewInMemoryRepository(carts CartStore) *InMemoryRepository {
	return &InMemoryRepository{
		carts:  carts,
		orders: make(map[string]Order),
		keys:   make(map[idempotencyKey]string),
	}
}

type memTx struct {
	repo   *InMemoryRepository
	header *Header
	key    string
	lines  []Line
	clear  []int
}

func (t *memTx) LockUser(ctx context.Context, userID int) error { return nil }

func (t *memTx) KeyedOrderNumber(ctx context.Context, userID int, key string) (string, error) {
	return t.repo.keys[idempotencyKey{userID, key}], nil
}

func (t *memTx) CartLines(ctx context.Context, userID int) ([]cart.Line, error) {
	return t.repo.carts.GetCart(ctx, userID)
}

func (t *memTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	_, ok := t.repo.orders[number]
	return ok, nil
}

func (t *memTx) InsertHeader(ctx context.Context, h Header, key string) error {
	if t.repo.failAt == "header" {
		return errSimulatedFailure
	}
	if _, ok := t.repo.orders[h.OrderNumber]; ok {
		return errors.New("duplicate order number")
	}
	t.header, t.key = &h, key
	return nil
}

func (t *memTx) InsertLine(ctx context.Context, l Line) error {
	if t.repo.failAt == "line" {
		return errSimulatedFailure
	}
	l.ImgURLs = append([]string(nil), l.ImgURLs...)
	t.lines = append(t.lines, l)
	return nil
}

func (t *memTx) ClearCart(ctx context.Context, userID int) error {
	if t.repo.failAt == "clear" {
		return errSimulatedFailure
	}
	t.clear = append(t.clear, userID)
	return nil
}

func (r *InMemoryRepository) RunInTx(ctx context.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, userID := range tx.clear {
		if err := r.carts.Clear(ctx, userID); err != nil {
			return err
		}
	}
	if tx.header != nil {
		r.orders[tx.header.OrderNumber] = NewOrder(*tx.header, tx.lines)
		if tx.key != "" {
			r.keys[idempotencyKey{tx.header.UserID, tx.key}] = tx.header.OrderNumber
		}
	}
	return nil
}

func (r *InMemoryRepository) FindByIdempotencyKey(ctx context.Context, userID int, key string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	number, ok := r.keys[idempotencyKey{userID, key}]
	if !ok {
		return Order{}, ErrNotFound
	}
	return r.orders[number], nil
}

func (r *InMemoryRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckTime.Equal(out[j].CheckTime) {
			return out[i].OrderNumber > out[j].OrderNumber
		}
		return out[i].CheckTime.After(out[j].CheckTime)
	})
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, number string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[number]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, number, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[number]
	if !ok || (from != "" && o.Status != from) {
		return false, nil
	}
	o.Status = to
	r.orders[number] = o
	return true, nil
}
