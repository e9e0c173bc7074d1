package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/courierlive/internal/metrics"
	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

// ErrRateLimited is returned when an agent sends locations faster than allowed.
var ErrRateLimited = errors.New("rate limited")

// StatusApplier persists a status reported over the realtime channel.
type StatusApplier interface {
	ApplyStatusUpdate(ctx context.Context, orderID string, status models.Status, actor string) (*models.Order, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

const (
	scopeAll  = "all"
	scopeRoom = "room"
)

func OrderRoom(orderID string) string { return "order-" + orderID }

func AgentRoom(agentID string) string { return "agent-" + agentID }

// Hub keeps the connection registry and room membership in memory.
// Nothing here is durable; clients rejoin their rooms after reconnecting.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]map[string]struct{}
	rooms map[string]map[*Conn]struct{}

	statuses StatusApplier

	limiter       RateLimiter
	locationLimit int64

	metrics *metrics.Metrics
	now     func() time.Time
}

func NewHub(statuses StatusApplier) *Hub {
	return &Hub{
		conns:    make(map[*Conn]map[string]struct{}),
		rooms:    make(map[string]map[*Conn]struct{}),
		statuses: statuses,
		now:      time.Now,
	}
}

// WithLocationLimit caps agent:location frames per agent per second. A
// non-positive limit or nil limiter disables the check.
func (h *Hub) WithLocationLimit(l RateLimiter, perSecond int64) *Hub {
	h.limiter = l
	h.locationLimit = perSecond
	return h
}

func (h *Hub) WithMetrics(m *metrics.Metrics) *Hub {
	h.metrics = m
	return h
}

func (h *Hub) WithClock(now func() time.Time) *Hub {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		return
	}
	h.conns[c] = make(map[string]struct{})
	h.metrics.ConnectionOpened()
}

// Disconnect drops c from the registry and from every room it joined.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.conns[c]
	if !ok {
		return
	}
	for room := range joined {
		members := h.rooms[room]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.conns, c)
	h.metrics.ConnectionClosed()
}

func (h *Hub) JoinOrderRoom(c *Conn, orderID string) error {
	if err := validateID("orderId", orderID); err != nil {
		return err
	}
	return h.join(c, OrderRoom(orderID))
}

func (h *Hub) JoinAgentRoom(c *Conn, agentID string) error {
	if err := validateID("agentId", agentID); err != nil {
		return err
	}
	return h.join(c, AgentRoom(agentID))
}

func (h *Hub) join(c *Conn, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.conns[c]
	if !ok {
		return errors.Errorf("connection %s is not registered", c.ID())
	}
	joined[room] = struct{}{}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	return nil
}

// PublishAgentLocation relays a position fix to the order room, when one
// is named, and to every connection.
func (h *Hub) PublishAgentLocation(ctx context.Context, p AgentLocation) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Timestamp == 0 {
		p.Timestamp = h.now().UnixMilli()
	}
	if h.limiter != nil && h.locationLimit > 0 {
		key := fmt.Sprintf("rl:location:%s:%d", p.AgentID, h.now().Unix())
		ok, _, err := h.limiter.Allow(ctx, key, h.locationLimit, 2*time.Second)
		if err != nil {
			slog.Warn("location rate limit check failed", "agent_id", p.AgentID, "error", err.Error())
		} else if !ok {
			return errors.Wrapf(ErrRateLimited, "agent %s", p.AgentID)
		}
	}

	payload := mustJSON(p)
	if p.OrderID != "" {
		h.BroadcastRoom(OrderRoom(p.OrderID), Frame{Type: EventOrderAgentLocation, Payload: payload})
	}
	h.BroadcastAll(Frame{Type: EventAgentLocation, Payload: payload})
	return nil
}

// PublishStatusUpdate persists the status first and broadcasts only once the
// write succeeded.
func (h *Hub) PublishStatusUpdate(ctx context.Context, p StatusUpdate) (*models.Order, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if h.statuses == nil {
		return nil, errors.Wrap(models.ErrStoreUnavailable, "no status store")
	}
	o, err := h.statuses.ApplyStatusUpdate(ctx, p.OrderID, p.Status, p.AgentID)
	if err != nil {
		slog.Error("persist realtime status", "order_id", p.OrderID, "status", p.Status.String(), "agent_id", p.AgentID, "error", err.Error())
		return nil, err
	}

	at := o.UpdatedAt
	if last, ok := o.LastStatusEntry(); ok {
		at = last.Timestamp
	}
	h.broadcastStatus(OrderStatusEvent{OrderID: o.OrderID, Status: o.Status, Time: at, AgentID: p.AgentID})
	return o, nil
}

func (h *Hub) OrderCreated(o *models.Order) {
	if o == nil {
		return
	}
	h.BroadcastAll(Frame{Type: EventOrderCreated, Payload: mustJSON(o)})
}

func (h *Hub) OrderStatusChanged(orderID string, status models.Status, at time.Time) {
	h.broadcastStatus(OrderStatusEvent{OrderID: orderID, Status: status, Time: at})
}

func (h *Hub) OrderAssigned(orderID, agentID string) {
	h.BroadcastAll(Frame{
		Type:    EventOrderAssigned,
		Payload: mustJSON(OrderAssignedEvent{OrderID: orderID, AgentID: agentID}),
	})
}

func (h *Hub) broadcastStatus(ev OrderStatusEvent) {
	f := Frame{Type: EventOrderStatus, Payload: mustJSON(ev)}
	h.BroadcastRoom(OrderRoom(ev.OrderID), f)
	h.BroadcastAll(f)
}

// BroadcastAll sends f to every registered connection.
func (h *Hub) BroadcastAll(f Frame) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(f, scopeAll, targets)
}

// BroadcastRoom sends f to the current members of room. An unknown room is a no-op.
func (h *Hub) BroadcastRoom(room string, f Frame) {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Conn, 0, len(members))
	for c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(f, scopeRoom, targets)
}

// deliver is fire and forget; a failing peer is cleaned up by its read loop.
func (h *Hub) deliver(f Frame, scope string, targets []*Conn) {
	failed := 0
	for _, c := range targets {
		if err := c.Send(f); err != nil {
			failed++
			slog.Debug("realtime deliver failed", "conn_id", c.ID(), "event", f.Type, "error", err.Error())
		}
	}
	h.metrics.Broadcast(f.Type, scope, len(targets)-failed, failed)
}

// Members returns the ids of the connections currently in room.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		out = append(out, c.ID())
	}
	return out
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
