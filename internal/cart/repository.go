package cart

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
	"github.com/wichananm65/park-shop-backend/internal/product"
)

var (
	ErrLineNotFound = apperror.NotFound("cart item not found")
)

// Line is one product in a user's cart joined with the product's current
// title, prices and images.
type Line struct {
	CartID    int             `json:"cartId"`
	UserID    int             `json:"userId"`
	ProductID int             `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	SalePrice decimal.Decimal `json:"salePrice"`
	Qty       int             `json:"qty"`
	ImgURLs   []string        `json:"imgUrls"`
}

func (l Line) UnitPrice() decimal.Decimal {
	return product.EffectivePrice(l.Price, l.SalePrice)
}

// Repository stores cart lines keyed by (userID, productID).
type Repository interface {
	GetCart(ctx context.Context, userID int) ([]Line, error)
	// Upsert inserts the line or adds qty to the existing one.
	Upsert(ctx context.Context, userID, productID, qty int) error
	SetQuantity(ctx context.Context, userID, productID, qty int) error
	Remove(ctx context.Context, userID, productID int) error
	Clear(ctx context.Context, userID int) error
}

type storedLine struct {
	id        int
	productID int
	qty       int
}

// InMemoryRepository is used for tests and local scenarios. Reads join the
// stored lines with the product lookup the same way the SQL join does.
type InMemoryRepository struct {
	mu       sync.RWMutex
	products ProductLookup
	lines    map[int][]storedLine
	nextID   int
}

func NewInMemoryRepository(products ProductLookup) *InMemoryRepository {
	return &InMemoryRepository{
		products: products,
		lines:    make(map[int][]storedLine),
		nextID:   1,
	}
}

func (r *InMemoryRepository) GetCart(ctx context.Context, userID int) ([]Line, error) {
	r.mu.RLock()
	stored := append([]storedLine(nil), r.lines[userID]...)
	r.mu.RUnlock()

	sort.Slice(stored, func(i, j int) bool { return stored[i].id < stored[j].id })
	out := make([]Line, 0, len(stored))
	for _, s := range stored {
		p, err := r.products.GetByID(ctx, s.productID)
		if err != nil {
			// the SQL join drops lines whose product is gone
			continue
		}
		out = append(out, Line{
			CartID:    s.id,
			UserID:    userID,
			ProductID: s.productID,
			Title:     p.Title,
			Price:     p.Price,
			SalePrice: p.SalePrice,
			Qty:       s.qty,
			ImgURLs:   p.ImgURLs,
		})
	}
	return out, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, userID, productID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].qty += qty
			return nil
		}
	}
	r.lines[userID] = append(lines, storedLine{id: r.nextID, productID: productID, qty: qty})
	r.nextID++
	return nil
}

func (r *InMemoryRepository) SetQuantity(ctx context.Context, userID, productID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].productID == productID {
			lines[i].qty = qty
			return nil
		}
	}
	return ErrLineNotFound
}

func (r *InMemoryRepository) Remove(ctx context.Context, userID, productID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := r.lines[userID]
	for i := range lines {
		if lines[i].productID == productID {
			r.lines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (r *InMemoryRepository) Clear(ctx context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lines, userID)
	return nil
}
