package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BearBump/courierlive/config"
	"github.com/BearBump/courierlive/internal/broker/kafka"
	"github.com/BearBump/courierlive/internal/cache"
	"github.com/BearBump/courierlive/internal/cache/rediscache"
	"github.com/BearBump/courierlive/internal/integrations/geocoder"
	"github.com/BearBump/courierlive/internal/integrations/geocoder/fake"
	"github.com/BearBump/courierlive/internal/integrations/geocoder/nominatim"
	"github.com/BearBump/courierlive/internal/metrics"
	"github.com/BearBump/courierlive/internal/models"
	"github.com/BearBump/courierlive/internal/realtime"
	"github.com/BearBump/courierlive/internal/services/agents"
	"github.com/BearBump/courierlive/internal/services/orders"
	"github.com/BearBump/courierlive/internal/storage/memstore"
	"github.com/BearBump/courierlive/internal/storage/pgorders"
)

type store interface {
	orders.Repository
	agents.Repository
}

type courierAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   courierAPIOpts
	deps   courierDeps

	closers []func()
}

func mustBootstrapCourierAPI() *courierAPIApp {
	cfg, err := config.Load(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := &courierAPIApp{ctx: ctx, cancel: cancel}

	consumerGroup := cfg.Courier.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "courier-api"
	}
	eventsTopic := cfg.Kafka.OrderEventsTopicName
	if eventsTopic == "" {
		eventsTopic = "order.events"
	}
	locationsTopic := cfg.Kafka.AgentLocationsTopicName
	if locationsTopic == "" {
		locationsTopic = "agent.locations"
	}
	cacheTTL := time.Duration(cfg.Courier.OrderCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	opTimeout := time.Duration(cfg.Courier.RealtimeOpTimeoutSeconds) * time.Second
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	rateLimit := int64(cfg.Courier.LocationRateLimitPerSecond)
	if rateLimit == 0 {
		rateLimit = 10
	}
	storeLocation := models.Location{Lat: cfg.Courier.StoreLat, Lng: cfg.Courier.StoreLng}
	if storeLocation.IsZero() {
		storeLocation = orders.DefaultStoreLocation
	}

	st := app.mustOpenStore(ctx, cfg.ConnString())

	var rc *rediscache.RedisCache
	if addr := cfg.RedisAddr(); addr != "" {
		rc = rediscache.New(addr)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			slog.Warn("redis unavailable, continuing without cache", "addr", addr, "error", err.Error())
		}
		pingCancel()
		app.closers = append(app.closers, func() { _ = rc.Close() })
	}

	m := metrics.New()
	var orderCache cache.BytesCache
	if rc != nil {
		orderCache = rc
	} else {
		cacheTTL = 0
	}
	svc := orders.New(st, orderCache, cacheTTL).
		WithStoreLocation(storeLocation).
		WithGeocoder(newGeocoder(cfg, storeLocation))

	hub := realtime.NewHub(svc).WithMetrics(m)
	if rc != nil {
		hub.WithLocationLimit(rediscache.NewRateLimiterWithClient(rc.Client()), rateLimit)
	}
	svc.WithNotifier(hub)

	var consumer kafkaConsumer
	if brokers := cfg.BrokerList(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers)
		svc.WithEvents(producer, eventsTopic)
		c := kafka.NewConsumer(brokers, locationsTopic, consumerGroup)
		consumer = c
		app.closers = append(app.closers, func() { _ = producer.Close() }, func() { _ = c.Close() })
	}

	app.opts = courierAPIOpts{
		httpAddr:          cfg.HTTPAddr(),
		swaggerPath:       os.Getenv("swaggerPath"),
		allowedOrigins:    cfg.AllowedOrigins(),
		realtimeOpTimeout: opTimeout,
		locationsTopic:    locationsTopic,
		consumerGroup:     consumerGroup,
	}
	app.deps = courierDeps{
		orders:   svc,
		agents:   agents.New(st),
		hub:      hub,
		metrics:  m,
		consumer: consumer,
	}
	return app
}

func (a *courierAPIApp) mustOpenStore(ctx context.Context, connString string) store {
	if connString == "" {
		slog.Warn("no database configured, orders are kept in memory")
		return memstore.New()
	}
	st, err := pgorders.Connect(ctx, connString, 60, time.Second)
	if err != nil {
		panic(fmt.Sprintf("postgres is not ready: %v", err))
	}
	a.closers = append(a.closers, st.Close)
	return st
}

func newGeocoder(cfg *config.Config, anchor models.Location) geocoder.Client {
	switch strings.ToLower(cfg.Courier.GeocoderMode) {
	case "off", "none":
		return nil
	case "fake":
		return fake.New(anchor)
	default:
		return nominatim.New(cfg.Courier.GeocoderBaseURL, cfg.Courier.GeocoderUserAgent)
	}
}

func (a *courierAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *courierAPIApp) Run() error {
	return runCourierAPI(a.ctx, a.opts, a.deps)
}
