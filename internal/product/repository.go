package product

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

var (
	ErrNotFound = apperror.NotFound("product not found")
)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int, patch Patch) (Product, error)
	Delete(ctx context.Context, id int) error
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[int]Product
	nextID  int
	now     func() time.Time
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{
		storage: make(map[int]Product, len(seed)),
		nextID:  1,
		now:     time.Now,
	}

	for _, p := range seed {
		if p.ImgURLs == nil {
			p.ImgURLs = []string{}
		}
		r.storage[p.ID] = p
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.storage))
	for _, p := range r.storage {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	p.CreatedAt, p.EditTime = now, now
	if p.ImgURLs == nil {
		p.ImgURLs = []string{}
	}
	r.storage[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id int, patch Patch) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.storage[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p = patch.Apply(p, r.now().UTC())
	r.storage[id] = p
	return p, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return ErrNotFound
	}
	delete(r.storage, id)
	return nil
}
