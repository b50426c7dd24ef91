package address

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

var ErrNotFound = apperror.NotFound("address not found")

type Repository interface {
	List(ctx context.Context, userID int) ([]Address, error)
	Get(ctx context.Context, userID, addressID int) (Address, error)
	Add(ctx context.Context, userID int, f Fields) (Address, error)
	Update(ctx context.Context, userID, addressID int, f Fields) (Address, error)
	Delete(ctx context.Context, userID, addressID int) error
}

// InMemoryRepository for tests
type InMemoryRepository struct {
	mu     sync.Mutex
	data   map[int]Address
	nextID int
	now    func() time.Time
}

func NewInMemoryRepository(seed []Address) *InMemoryRepository {
	r := &InMemoryRepository{data: make(map[int]Address), now: time.Now}
	for _, a := range seed {
		r.data[a.AddressID] = a
		if a.AddressID > r.nextID {
			r.nextID = a.AddressID
		}
	}
	return r
}

func (r *InMemoryRepository) List(ctx context.Context, userID int) ([]Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Address, 0)
	for _, a := range r.data {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddressID < out[j].AddressID })
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, userID, addressID int) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[addressID]
	if !ok || a.UserID != userID {
		return Address{}, ErrNotFound
	}
	return a, nil
}

func (r *InMemoryRepository) Add(ctx context.Context, userID int, f Fields) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := r.now().UTC()
	a := Address{
		AddressID: r.nextID,
		UserID:    userID,
		Consignee: f.Consignee,
		Tel:       f.Tel,
		Address:   f.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.data[a.AddressID] = a
	return a, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, userID, addressID int, f Fields) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[addressID]
	if !ok || a.UserID != userID {
		return Address{}, ErrNotFound
	}
	a.Consignee, a.Tel, a.Address = f.Consignee, f.Tel, f.Address
	a.UpdatedAt = r.now().UTC()
	r.data[addressID] = a
	return a, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, userID, addressID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[addressID]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, addressID)
	return nil
}
