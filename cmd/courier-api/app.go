package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/courierlive/internal/api/httpapi"
	"github.com/BearBump/courierlive/internal/metrics"
	"github.com/BearBump/courierlive/internal/realtime"
	"github.com/BearBump/courierlive/internal/services/agents"
	"github.com/BearBump/courierlive/internal/services/locations"
	"github.com/BearBump/courierlive/internal/services/orders"
)

type courierAPIOpts struct {
	httpAddr          string
	swaggerPath       string
	allowedOrigins    []string
	realtimeOpTimeout time.Duration

	locationsTopic string
	consumerGroup  string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type courierDeps struct {
	orders   *orders.Service
	agents   *agents.Service
	hub      *realtime.Hub
	metrics  *metrics.Metrics
	consumer kafkaConsumer
}

func runCourierAPI(ctx context.Context, opts courierAPIOpts, deps courierDeps) error {
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	ws := realtime.NewHandler(deps.hub, opts.allowedOrigins, opts.realtimeOpTimeout).WithMetrics(deps.metrics)
	router := httpapi.NewRouter(deps.orders, deps.agents, httpapi.Options{
		AllowedOrigins: opts.allowedOrigins,
		SwaggerPath:    opts.swaggerPath,
		Realtime:       ws,
		Metrics:        deps.metrics,
	})

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	if deps.consumer != nil {
		ingest := locations.NewIngest(deps.hub, opts.realtimeOpTimeout)
		go func() {
			slog.Info("kafka consumer started", "topic", opts.locationsTopic, "group", opts.consumerGroup)
			err := deps.consumer.Consume(ctx, ingest.Handle(ctx))
			if err != nil && ctx.Err() == nil {
				slog.Error("kafka consumer stopped", "topic", opts.locationsTopic, "error", err.Error())
			}
		}()
	}

	return serveHTTP(ctx, lis, router)
}

func serveHTTP(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	err := srv.Serve(lis)
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}
