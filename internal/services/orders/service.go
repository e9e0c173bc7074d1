package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/courierlive/internal/broker/messages"
	"github.com/BearBump/courierlive/internal/cache"
	"github.com/BearBump/courierlive/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//go:generate mockery --name=Repository --output=./mocks --outpkg=mocks --structname=MockRepository
//go:generate mockery --name=Notifier --output=./mocks --outpkg=mocks --structname=MockNotifier

type Repository interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context) ([]*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrder(ctx context.Context, id string, mutate func(*models.Order) error) (*models.Order, error)
	UpdateOrderByOrderID(ctx context.Context, orderID string, mutate func(*models.Order) error) (*models.Order, error)
}

// Notifier fans order changes out to realtime subscribers.
type Notifier interface {
	OrderCreated(o *models.Order)
	OrderStatusChanged(orderID string, status models.Status, at time.Time)
	OrderAssigned(orderID, agentID string)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
}

// DefaultStoreLocation is used when an order is created without a store location.
var DefaultStoreLocation = models.Location{Lat: 12.9716, Lng: 77.5946}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration

	notifier    Notifier
	producer    Producer
	eventsTopic string
	geocoder    Geocoder

	storeLocation models.Location
	now           func() time.Time
	newOTP        func() string
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration) *Service {
	return &Service{
		repo:          repo,
		cache:         c,
		currentTTL:    currentTTL,
		storeLocation: DefaultStoreLocation,
		now:           func() time.Time { return time.Now().UTC() },
		newOTP:        randomOTP,
	}
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithEvents publishes order events to topic after every successful write.
func (s *Service) WithEvents(p Producer, topic string) *Service {
	s.producer = p
	s.eventsTopic = topic
	return s
}

func (s *Service) WithGeocoder(g Geocoder) *Service {
	s.geocoder = g
	return s
}

func (s *Service) WithStoreLocation(loc models.Location) *Service {
	if !loc.IsZero() {
		s.storeLocation = loc
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) WithOTPGenerator(gen func() string) *Service {
	if gen != nil {
		s.newOTP = gen
	}
	return s
}

func (s *Service) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.repo.ListOrders(ctx)
}

// GetOrder looks an order up by its public id, reading through the cache.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.Wrap(models.ErrValidation, "orderId is required")
	}

	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, currentKey(orderID))
		if err == nil && ok {
			var o models.Order
			if json.Unmarshal(b, &o) == nil {
				return &o, nil
			}
		}
	}

	o, err := s.repo.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, o)
	return o, nil
}

func (s *Service) CreateOrder(ctx context.Context, in models.OrderCreateInput) (*models.Order, error) {
	items := in.Items
	if len(items) == 0 && strings.TrimSpace(in.ItemsText) != "" {
		parsed, err := ParseItems(in.ItemsText)
		if err != nil {
			return nil, err
		}
		items = parsed
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "status %q is not a valid enum value", in.Status)
	}

	customer := in.Customer
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Address = strings.TrimSpace(customer.Address)
	if err := customer.Location().Validate(); err != nil {
		return nil, err
	}
	if customer.Location().IsZero() && customer.Address != "" && s.geocoder != nil {
		loc, err := s.geocoder.Geocode(ctx, customer.Address)
		if err != nil {
			slog.Warn("geocode customer address", "address", customer.Address, "error", err.Error())
		} else {
			customer.Lat, customer.Lng = loc.Lat, loc.Lng
		}
	}

	store := s.storeLocation
	if in.StoreLocation != nil {
		if err := in.StoreLocation.Validate(); err != nil {
			return nil, err
		}
		store = *in.StoreLocation
	}

	id := uuid.New()
	o := &models.Order{
		ID:            id.String(),
		OrderID:       shortID(id),
		Customer:      customer,
		Items:         items,
		PreferredTime: strings.TrimSpace(in.PreferredTime),
		Status:        in.Status,
		OTP:           s.newOTP(),
		StoreLocation: store,
	}
	if err := Seed(o, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	s.remember(ctx, o)
	if s.notifier != nil {
		s.notifier.OrderCreated(o)
	}
	s.publish(ctx, messages.OrderEvent{
		Type:    messages.OrderEventCreated,
		OrderID: o.OrderID,
		Status:  string(o.Status),
		At:      o.CreatedAt,
		Order:   o,
	})
	return o, nil
}

// UpdateStatus is the dashboard path: id is the storage id, the public id is accepted as a fallback.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Order, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "status %q is not a valid enum value", status)
	}
	at := s.now()
	o, err := s.updateByAnyID(ctx, id, func(o *models.Order) error {
		return ApplyStatus(o, status, at)
	})
	if err != nil {
		return nil, err
	}
	s.afterStatusChange(ctx, o, "")
	if s.notifier != nil {
		last, _ := o.LastStatusEntry()
		s.notifier.OrderStatusChanged(o.OrderID, o.Status, last.Timestamp)
	}
	return o, nil
}

// ApplyStatusUpdate persists a status reported over the realtime channel.
// Broadcasting is left to the caller.
func (s *Service) ApplyStatusUpdate(ctx context.Context, orderID string, status models.Status, actor string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.Wrap(models.ErrValidation, "orderId is required")
	}
	if !status.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "status %q is not a valid enum value", status)
	}
	at := s.now()
	o, err := s.repo.UpdateOrderByOrderID(ctx, orderID, func(o *models.Order) error {
		return ApplyStatus(o, status, at)
	})
	if err != nil {
		return nil, err
	}
	s.afterStatusChange(ctx, o, actor)
	return o, nil
}

// AssignAgent sets the assigned agent; an empty agentID clears it. No history entry is written.
func (s *Service) AssignAgent(ctx context.Context, id string, agentID string) (*models.Order, error) {
	agentID = strings.TrimSpace(agentID)
	o, err := s.updateByAnyID(ctx, id, func(o *models.Order) error {
		if agentID == "" {
			o.AssignedAgentID = nil
		} else {
			a := agentID
			o.AssignedAgentID = &a
		}
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.remember(ctx, o)
	if s.notifier != nil {
		s.notifier.OrderAssigned(o.OrderID, agentID)
	}
	s.publish(ctx, messages.OrderEvent{
		Type:    messages.OrderEventAssigned,
		OrderID: o.OrderID,
		AgentID: agentID,
		At:      o.UpdatedAt,
	})
	return o, nil
}

// VerifyOTP confirms delivery with the customer's one-time code.
func (s *Service) VerifyOTP(ctx context.Context, orderID string, otp string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.Wrap(models.ErrValidation, "orderId is required")
	}
	at := s.now()
	o, err := s.repo.UpdateOrderByOrderID(ctx, orderID, func(o *models.Order) error {
		return VerifyCode(o, strings.TrimSpace(otp), at)
	})
	if err != nil {
		return nil, err
	}
	s.afterStatusChange(ctx, o, "")
	if s.notifier != nil {
		last, _ := o.LastStatusEntry()
		s.notifier.OrderStatusChanged(o.OrderID, o.Status, last.Timestamp)
	}
	return o, nil
}

func (s *Service) updateByAnyID(ctx context.Context, id string, mutate func(*models.Order) error) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.Wrap(models.ErrValidation, "id is required")
	}
	o, err := s.repo.UpdateOrder(ctx, id, mutate)
	if errors.Is(err, models.ErrNotFound) {
		return s.repo.UpdateOrderByOrderID(ctx, id, mutate)
	}
	return o, err
}

func (s *Service) afterStatusChange(ctx context.Context, o *models.Order, actor string) {
	s.remember(ctx, o)
	last, _ := o.LastStatusEntry()
	s.publish(ctx, messages.OrderEvent{
		Type:    messages.OrderEventStatus,
		OrderID: o.OrderID,
		Status:  string(o.Status),
		AgentID: actor,
		At:      last.Timestamp,
	})
}

func (s *Service) remember(ctx context.Context, o *models.Order) {
	if !s.cacheEnabled() || o == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, currentKey(o.OrderID), b, s.currentTTL)
}

func (s *Service) publish(ctx context.Context, ev messages.OrderEvent) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal order event", "order_id", ev.OrderID, "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, []byte(ev.OrderID), b); err != nil {
		slog.Error("publish order event", "order_id", ev.OrderID, "type", ev.Type, "error", err.Error())
	}
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func currentKey(orderID string) string {
	return fmt.Sprintf("order:%s:current", orderID)
}

func shortID(id uuid.UUID) string {
	return strings.SplitN(id.String(), "-", 2)[0]
}

func randomOTP() string {
	return strconv.Itoa(1000 + rand.Intn(9000))
}
