package orders

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/courierlive/internal/broker/messages"
	cachemocks "github.com/BearBump/courierlive/internal/cache/mocks"
	"github.com/BearBump/courierlive/internal/models"
	"github.com/BearBump/courierlive/internal/storage/memstore"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	ordersmocks "github.com/BearBump/courierlive/internal/services/orders/mocks"
)

type fakeProducer struct {
	mu     sync.Mutex
	events []messages.OrderEvent
	err    error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ev messages.OrderEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return p.err
}

type fakeGeocoder struct {
	loc models.Location
	err error
}

func (g fakeGeocoder) Geocode(ctx context.Context, address string) (models.Location, error) {
	return g.loc, g.err
}

type ServiceSuite struct {
	suite.Suite

	store    *memstore.Store
	cache    *cachemocks.MockBytesCache
	notifier *ordersmocks.MockNotifier
	producer *fakeProducer
	svc      *Service

	now time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.store = memstore.New()
	s.cache = &cachemocks.MockBytesCache{}
	s.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, 10*time.Minute).Return(nil).Maybe()
	s.notifier = &ordersmocks.MockNotifier{}
	s.producer = &fakeProducer{}
	s.now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s.svc = New(s.store, s.cache, 10*time.Minute).
		WithNotifier(s.notifier).
		WithEvents(s.producer, "order-events").
		WithClock(func() time.Time {
			s.now = s.now.Add(time.Second)
			return s.now
		}).
		WithOTPGenerator(func() string { return "4821" })
}

func (s *ServiceSuite) create() *models.Order {
	s.notifier.On("OrderCreated", mock.Anything).Once()
	o, err := s.svc.CreateOrder(context.Background(), models.OrderCreateInput{
		Customer:  models.Customer{Name: "Asha", Phone: "98450", Address: "MG Road"},
		ItemsText: "Pizza:1, Coke:2",
	})
	s.Require().NoError(err)
	return o
}

func (s *ServiceSuite) TestCreateOrder_FromItemsText() {
	o := s.create()

	s.Require().Equal([]models.Item{{Name: "Pizza", Qty: 1}, {Name: "Coke", Qty: 2}}, o.Items)
	s.Require().Equal(models.StatusScheduled, o.Status)
	s.Require().Len(o.StatusHistory, 1)
	s.Require().Equal("4821", o.OTP)
	s.Require().Nil(o.AssignedAgentID)
	s.Require().Equal(DefaultStoreLocation, o.StoreLocation)
	s.Require().True(strings.HasPrefix(o.ID, o.OrderID+"-"))
	s.Require().Len(o.OrderID, 8)

	stored, err := s.store.GetOrderByOrderID(context.Background(), o.OrderID)
	s.Require().NoError(err)
	s.Require().Equal(o.ID, stored.ID)

	s.cache.AssertCalled(s.T(), "Set", mock.Anything, "order:"+o.OrderID+":current", mock.Anything, 10*time.Minute)
	s.notifier.AssertExpectations(s.T())
	s.Require().Len(s.producer.events, 1)
	s.Require().Equal(messages.OrderEventCreated, s.producer.events[0].Type)
	s.Require().Equal(o.OrderID, s.producer.events[0].OrderID)
}

func (s *ServiceSuite) TestCreateOrder_ValidationErrors() {
	ctx := context.Background()

	_, err := s.svc.CreateOrder(ctx, models.OrderCreateInput{})
	s.Require().True(errors.Is(err, models.ErrValidation))

	_, err = s.svc.CreateOrder(ctx, models.OrderCreateInput{ItemsText: "Pizza:x"})
	s.Require().True(errors.Is(err, models.ErrValidation))

	_, err = s.svc.CreateOrder(ctx, models.OrderCreateInput{
		Items:  []models.Item{{Name: "Pizza", Qty: 1}},
		Status: models.Status("Lost"),
	})
	s.Require().True(errors.Is(err, models.ErrValidation))

	_, err = s.svc.CreateOrder(ctx, models.OrderCreateInput{
		Items:    []models.Item{{Name: "Pizza", Qty: 1}},
		Customer: models.Customer{Lat: 120},
	})
	s.Require().True(errors.Is(err, models.ErrValidation))

	out, _ := s.store.ListOrders(ctx)
	s.Require().Empty(out)
	s.notifier.AssertNotCalled(s.T(), "OrderCreated", mock.Anything)
}

func (s *ServiceSuite) TestCreateOrder_GeocodesMissingCoordinates() {
	s.svc.WithGeocoder(fakeGeocoder{loc: models.Location{Lat: 12.97, Lng: 77.6}})
	o := s.create()
	s.Require().Equal(12.97, o.Customer.Lat)
	s.Require().Equal(77.6, o.Customer.Lng)
}

func (s *ServiceSuite) TestCreateOrder_GeocoderFailureIsIgnored() {
	s.svc.WithGeocoder(fakeGeocoder{err: errors.New("boom")})
	o := s.create()
	s.Require().True(o.Customer.Location().IsZero())
}

func (s *ServiceSuite) TestCreateOrder_PublishFailureDoesNotFail() {
	s.producer.err = errors.New("broker down")
	o := s.create()
	s.Require().NotEmpty(o.OrderID)
}

func (s *ServiceSuite) TestUpdateStatus_ByStorageIDAndPublicID() {
	o := s.create()
	ctx := context.Background()

	s.notifier.On("OrderStatusChanged", o.OrderID, models.StatusPickedUp, mock.Anything).Once()
	got, err := s.svc.UpdateStatus(ctx, o.ID, models.StatusPickedUp)
	s.Require().NoError(err)
	s.Require().Equal(models.StatusPickedUp, got.Status)

	s.notifier.On("OrderStatusChanged", o.OrderID, models.StatusDelivered, mock.Anything).Once()
	got, err = s.svc.UpdateStatus(ctx, o.OrderID, models.StatusDelivered)
	s.Require().NoError(err)
	s.Require().Equal(models.StatusDelivered, got.Status)
	s.Require().Len(got.StatusHistory, 3)

	for i := 1; i < len(got.StatusHistory); i++ {
		s.Require().False(got.StatusHistory[i].Timestamp.Before(got.StatusHistory[i-1].Timestamp))
	}
	s.notifier.AssertExpectations(s.T())
	s.Require().Equal(messages.OrderEventStatus, s.producer.events[len(s.producer.events)-1].Type)
}

func (s *ServiceSuite) TestUpdateStatus_Errors() {
	o := s.create()
	ctx := context.Background()

	_, err := s.svc.UpdateStatus(ctx, o.ID, models.Status("Lost"))
	s.Require().True(errors.Is(err, models.ErrValidation))

	_, err = s.svc.UpdateStatus(ctx, "nope", models.StatusDelivered)
	s.Require().True(errors.Is(err, models.ErrNotFound))

	s.notifier.AssertNotCalled(s.T(), "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestApplyStatusUpdate_DoesNotNotify() {
	o := s.create()

	got, err := s.svc.ApplyStatusUpdate(context.Background(), o.OrderID, models.StatusReachedStore, "agent_1001")
	s.Require().NoError(err)
	s.Require().Equal(models.StatusReachedStore, got.Status)
	s.notifier.AssertNotCalled(s.T(), "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything)

	last := s.producer.events[len(s.producer.events)-1]
	s.Require().Equal("agent_1001", last.AgentID)

	_, err = s.svc.ApplyStatusUpdate(context.Background(), "missing", models.StatusReachedStore, "")
	s.Require().True(errors.Is(err, models.ErrNotFound))
}

func (s *ServiceSuite) TestAssignAgent_SetAndClear() {
	o := s.create()
	ctx := context.Background()

	s.notifier.On("OrderAssigned", o.OrderID, "agent_1001").Once()
	got, err := s.svc.AssignAgent(ctx, o.ID, " agent_1001 ")
	s.Require().NoError(err)
	s.Require().NotNil(got.AssignedAgentID)
	s.Require().Equal("agent_1001", *got.AssignedAgentID)
	s.Require().Len(got.StatusHistory, 1)

	s.notifier.On("OrderAssigned", o.OrderID, "").Once()
	got, err = s.svc.AssignAgent(ctx, o.ID, "")
	s.Require().NoError(err)
	s.Require().Nil(got.AssignedAgentID)
	s.notifier.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestVerifyOTP() {
	o := s.create()
	ctx := context.Background()

	_, err := s.svc.VerifyOTP(ctx, o.OrderID, "0000")
	s.Require().True(errors.Is(err, models.ErrUnauthorized))
	s.notifier.AssertNotCalled(s.T(), "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything)

	unchanged, _ := s.store.GetOrderByOrderID(ctx, o.OrderID)
	s.Require().Equal(models.StatusScheduled, unchanged.Status)
	s.Require().Len(unchanged.StatusHistory, 1)

	s.notifier.On("OrderStatusChanged", o.OrderID, models.StatusDelivered, mock.Anything).Once()
	got, err := s.svc.VerifyOTP(ctx, o.OrderID, "4821")
	s.Require().NoError(err)
	s.Require().Equal(models.StatusDelivered, got.Status)
	s.notifier.AssertExpectations(s.T())

	_, err = s.svc.VerifyOTP(ctx, "missing", "4821")
	s.Require().True(errors.Is(err, models.ErrNotFound))
}

func (s *ServiceSuite) TestGetOrder_CacheHit_NoDB() {
	repo := &ordersmocks.MockRepository{}
	c := &cachemocks.MockBytesCache{}
	svc := New(repo, c, time.Minute)

	b, _ := json.Marshal(&models.Order{ID: "id-1", OrderID: "a1b2c3d4", Status: models.StatusPickedUp})
	c.On("Get", mock.Anything, "order:a1b2c3d4:current").Return(b, true, nil).Once()

	o, err := svc.GetOrder(context.Background(), "a1b2c3d4")
	s.Require().NoError(err)
	s.Require().Equal(models.StatusPickedUp, o.Status)
	repo.AssertNotCalled(s.T(), "GetOrderByOrderID", mock.Anything, mock.Anything)
	c.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestGetOrder_CacheMissFillsCache() {
	repo := &ordersmocks.MockRepository{}
	c := &cachemocks.MockBytesCache{}
	svc := New(repo, c, time.Minute)

	c.On("Get", mock.Anything, "order:a1:current").Return(nil, false, nil).Once()
	repo.On("GetOrderByOrderID", mock.Anything, "a1").Return(&models.Order{ID: "id-1", OrderID: "a1"}, nil).Once()
	c.On("Set", mock.Anything, "order:a1:current", mock.Anything, time.Minute).Return(nil).Once()

	o, err := svc.GetOrder(context.Background(), "a1")
	s.Require().NoError(err)
	s.Require().Equal("id-1", o.ID)
	repo.AssertExpectations(s.T())
	c.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestGetOrder_CacheDisabledAndErrors() {
	repo := &ordersmocks.MockRepository{}
	svc := New(repo, nil, 0)

	repo.On("GetOrderByOrderID", mock.Anything, "a1").Return(nil, models.ErrStoreUnavailable).Once()
	_, err := svc.GetOrder(context.Background(), "a1")
	s.Require().True(errors.Is(err, models.ErrStoreUnavailable))

	_, err = svc.GetOrder(context.Background(), "  ")
	s.Require().True(errors.Is(err, models.ErrValidation))
	repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestUpdateStatus_StoreErrorDoesNotFallBack() {
	repo := &ordersmocks.MockRepository{}
	svc := New(repo, nil, 0)

	repo.On("UpdateOrder", mock.Anything, "id-1", mock.Anything).Return(nil, models.ErrStoreUnavailable).Once()
	_, err := svc.UpdateStatus(context.Background(), "id-1", models.StatusDelivered)
	s.Require().True(errors.Is(err, models.ErrStoreUnavailable))
	repo.AssertNotCalled(s.T(), "UpdateOrderByOrderID", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestListOrders() {
	s.create()
	s.create()
	out, err := s.svc.ListOrders(context.Background())
	s.Require().NoError(err)
	s.Require().Len(out, 2)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
