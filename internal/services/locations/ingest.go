// Package locations feeds position fixes from the telematics topic into the realtime hub.
package locations

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/courierlive/internal/broker/messages"
	"github.com/BearBump/courierlive/internal/realtime"
	"github.com/pkg/errors"
)

type Publisher interface {
	PublishAgentLocation(ctx context.Context, p realtime.AgentLocation) error
}

type Ingest struct {
	pub     Publisher
	timeout time.Duration
}

func NewIngest(pub Publisher, timeout time.Duration) *Ingest {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Ingest{pub: pub, timeout: timeout}
}

// Handle is a kafka.Consumer handler. Bad or throttled fixes are dropped
// so the offset still advances; only context cancellation stops consumption.
func (i *Ingest) Handle(ctx context.Context) func(key, value []byte) error {
	return func(key, value []byte) error {
		var msg messages.AgentLocation
		if err := json.Unmarshal(value, &msg); err != nil {
			slog.Warn("drop agent location: decode", "key", string(key), "error", err.Error())
			return nil
		}

		opCtx, cancel := context.WithTimeout(ctx, i.timeout)
		defer cancel()
		err := i.pub.PublishAgentLocation(opCtx, realtime.AgentLocation{
			AgentID:   msg.AgentID,
			OrderID:   msg.OrderID,
			Lat:       msg.Lat,
			Lng:       msg.Lng,
			Accuracy:  msg.Accuracy,
			Heading:   msg.Heading,
			Speed:     msg.Speed,
			Timestamp: msg.Timestamp,
		})
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "ingest agent location")
			}
			slog.Warn("drop agent location", "agent_id", msg.AgentID, "error", err.Error())
		}
		return nil
	}
}
