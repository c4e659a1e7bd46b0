// Package customers holds the customer model and repository.
package customers

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Customer is one customer record.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// NotFoundError is returned when a customer doesn't exist.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return "customer not found: " + e.ID
}

// Repository provides access to customer records.
// Implementations must be safe for concurrent use.
type Repository interface {
	// List returns all customers ordered by name.
	List(ctx context.Context) ([]Customer, error)

	// Get returns the customer with the given ID.
	// Returns NotFoundError if no such customer exists.
	Get(ctx context.Context, id string) (Customer, error)

	// Put inserts or replaces a customer.
	Put(ctx context.Context, c Customer) error
}

// MemoryRepository is an in-memory Repository implementation.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Customer
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Customer)}
}

// NewSeededRepository creates an in-memory repository preloaded with a
// handful of demo customers.
func NewSeededRepository() *MemoryRepository {
	r := NewMemoryRepository()
	for _, c := range seed {
		r.records[c.ID] = c
	}
	return r
}

// List returns all customers ordered by name.
func (r *MemoryRepository) List(ctx context.Context) ([]Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Customer, 0, len(r.records))
	for _, c := range r.records {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the customer with the given ID.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.records[id]
	if !ok {
		return Customer{}, NotFoundError{ID: id}
	}
	return c, nil
}

// Put inserts or replaces a customer.
func (r *MemoryRepository) Put(ctx context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[c.ID] = c
	return nil
}

var seed = []Customer{
	{
		ID:        "c-1001",
		Name:      "Ada Byron",
		Email:     "ada@analytical.example",
		Company:   "Analytical Engines Ltd",
		Phone:     "+44 20 7946 0101",
		CreatedAt: time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC),
	},
	{
		ID:        "c-1002",
		Name:      "Grace Hopper",
		Email:     "grace@flowmatic.example",
		Company:   "FlowMatic Systems",
		Phone:     "+1 212 555 0147",
		CreatedAt: time.Date(2024, 5, 2, 14, 15, 0, 0, time.UTC),
	},
	{
		ID:        "c-1003",
		Name:      "Edsger Dijkstra",
		Email:     "edsger@shortestpath.example",
		Company:   "Shortest Path BV",
		Phone:     "+31 40 555 0188",
		CreatedAt: time.Date(2024, 6, 20, 11, 0, 0, 0, time.UTC),
	},
	{
		ID:        "c-1004",
		Name:      "Barbara Liskov",
		Email:     "barbara@substitution.example",
		Company:   "Substitution Inc",
		Phone:     "+1 617 555 0123",
		CreatedAt: time.Date(2024, 8, 1, 16, 45, 0, 0, time.UTC),
	},
}
