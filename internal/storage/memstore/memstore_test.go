package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newOrder(id, orderID string, created time.Time) *models.Order {
	return &models.Order{
		ID:        id,
		OrderID:   orderID,
		Items:     []models.Item{{Name: "Pizza", Qty: 1}},
		Status:    models.StatusScheduled,
		OTP:       "1234",
		CreatedAt: created,
		UpdatedAt: created,
		StatusHistory: []models.StatusEntry{
			{Status: models.StatusScheduled, Timestamp: created},
		},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateOrder(ctx, newOrder("id-1", "a1b2c3d4", now)))

	byID, err := s.GetOrder(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "a1b2c3d4", byID.OrderID)

	byPublic, err := s.GetOrderByOrderID(ctx, "a1b2c3d4")
	require.NoError(t, err)
	require.Equal(t, "id-1", byPublic.ID)

	_, err = s.GetOrder(ctx, "missing")
	require.True(t, errors.Is(err, models.ErrNotFound))
	_, err = s.GetOrderByOrderID(ctx, "missing")
	require.True(t, errors.Is(err, models.ErrNotFound))
}

func TestStore_CreateDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateOrder(ctx, newOrder("id-1", "a1", now)))
	err := s.CreateOrder(ctx, newOrder("id-2", "a1", now))
	require.True(t, errors.Is(err, models.ErrValidation))
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := newOrder("id-1", "a1", time.Now())
	require.NoError(t, s.CreateOrder(ctx, o))

	o.Items[0].Name = "changed"
	got, err := s.GetOrder(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "Pizza", got.Items[0].Name)

	got.StatusHistory = nil
	again, _ := s.GetOrder(ctx, "id-1")
	require.Len(t, again.StatusHistory, 1)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateOrder(ctx, newOrder("id-1", "a1", base)))
	require.NoError(t, s.CreateOrder(ctx, newOrder("id-2", "a2", base.Add(time.Minute))))
	require.NoError(t, s.CreateOrder(ctx, newOrder("id-3", "a3", base.Add(-time.Minute))))

	out, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, []string{"a2", "a1", "a3"}, []string{out[0].OrderID, out[1].OrderID, out[2].OrderID})
}

func TestStore_UpdateFailedMutateKeepsOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, newOrder("id-1", "a1", time.Now())))

	_, err := s.UpdateOrderByOrderID(ctx, "a1", func(o *models.Order) error {
		o.Status = models.StatusDelivered
		return models.ErrUnauthorized
	})
	require.True(t, errors.Is(err, models.ErrUnauthorized))

	got, _ := s.GetOrder(ctx, "id-1")
	require.Equal(t, models.StatusScheduled, got.Status)
}

func TestStore_ConcurrentUpdatesKeepEveryEntry(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, newOrder("id-1", "a1", time.Now())))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateOrder(ctx, "id-1", func(o *models.Order) error {
				o.StatusHistory = append(o.StatusHistory, models.StatusEntry{Status: models.StatusPickedUp, Timestamp: time.Now()})
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := s.GetOrder(ctx, "id-1")
	require.Len(t, got.StatusHistory, n+1)
}

func TestStore_Agents(t *testing.T) {
	s := New()
	ctx := context.Background()

	out, err := s.ListActiveAgents(ctx)
	require.NoError(t, err)
	require.Empty(t, out)

	require.NoError(t, s.UpsertAgents(ctx, []models.Agent{
		{AgentID: "agent_1002", Name: "Bob", Active: true},
		{AgentID: "agent_1001", Name: "Alice", Active: true},
		{AgentID: "agent_9", Name: "Off", Active: false},
	}))
	out, err = s.ListActiveAgents(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "agent_1001", out[0].AgentID)

	require.Error(t, s.UpsertAgents(ctx, []models.Agent{{AgentID: " "}}))
}
