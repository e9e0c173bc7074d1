// Package memstore keeps orders and agents in process memory.
// It is used when no database is configured and in tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

type Store struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	byOrderID map[string]string
	agents    map[string]models.Agent
}

func New() *Store {
	return &Store{
		orders:    make(map[string]*models.Order),
		byOrderID: make(map[string]string),
		agents:    make(map[string]models.Agent),
	}
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	if o == nil || o.ID == "" || o.OrderID == "" {
		return errors.Wrap(models.ErrValidation, "order id and orderId are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return errors.Wrapf(models.ErrValidation, "order %s already exists", o.ID)
	}
	if _, ok := s.byOrderID[o.OrderID]; ok {
		return errors.Wrapf(models.ErrValidation, "orderId %s already exists", o.OrderID)
	}
	s.orders[o.ID] = o.Clone()
	s.byOrderID[o.OrderID] = o.ID
	return nil
}

// ListOrders returns every order, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]*models.Order, error) {
	s.mu.Lock()
	out := make([]*models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	return o.Clone(), nil
}

func (s *Store) GetOrderByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOrderID[orderID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", orderID)
	}
	return s.orders[id].Clone(), nil
}

// UpdateOrder runs mutate on a copy under the store lock and keeps the copy
// only when mutate succeeds.
func (s *Store) UpdateOrder(ctx context.Context, id string, mutate func(*models.Order) error) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, mutate)
}

func (s *Store) UpdateOrderByOrderID(ctx context.Context, orderID string, mutate func(*models.Order) error) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOrderID[orderID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", orderID)
	}
	return s.updateLocked(id, mutate)
}

func (s *Store) updateLocked(id string, mutate func(*models.Order) error) (*models.Order, error) {
	cur, ok := s.orders[id]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "order %s", id)
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID, next.OrderID = cur.ID, cur.OrderID
	s.orders[id] = next
	return next.Clone(), nil
}

// ListActiveAgents returns active agents ordered by agentId.
func (s *Store) ListActiveAgents(ctx context.Context) ([]models.Agent, error) {
	s.mu.Lock()
	out := make([]models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Active {
			out = append(out, a)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

// UpsertAgents inserts or replaces agents keyed by agentId.
func (s *Store) UpsertAgents(ctx context.Context, agents []models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range agents {
		a.AgentID = strings.TrimSpace(a.AgentID)
		if a.AgentID == "" {
			return errors.Wrap(models.ErrValidation, "agentId is required")
		}
		s.agents[a.AgentID] = a
	}
	return nil
}
