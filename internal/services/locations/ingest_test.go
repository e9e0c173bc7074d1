package locations

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/courierlive/internal/broker/messages"
	"github.com/BearBump/courierlive/internal/realtime"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	got []realtime.AgentLocation
	err error
}

func (p *fakePublisher) PublishAgentLocation(ctx context.Context, loc realtime.AgentLocation) error {
	p.got = append(p.got, loc)
	return p.err
}

func TestIngest_ForwardsFix(t *testing.T) {
	pub := &fakePublisher{}
	h := NewIngest(pub, time.Second).Handle(context.Background())

	b, _ := json.Marshal(messages.AgentLocation{AgentID: "agent_1001", OrderID: "a1", Lat: 12.9, Lng: 77.6, Speed: 4.2, Timestamp: 1700000000000})
	require.NoError(t, h([]byte("agent_1001"), b))

	require.Equal(t, []realtime.AgentLocation{{
		AgentID: "agent_1001", OrderID: "a1", Lat: 12.9, Lng: 77.6, Speed: 4.2, Timestamp: 1700000000000,
	}}, pub.got)
}

func TestIngest_DropsBadMessages(t *testing.T) {
	pub := &fakePublisher{err: realtime.ErrRateLimited}
	h := NewIngest(pub, time.Second).Handle(context.Background())

	require.NoError(t, h(nil, []byte("not json")))
	require.Empty(t, pub.got)

	require.NoError(t, h(nil, []byte(`{"agent_id":"agent_1001","lat":1,"lng":2}`)))
	require.Len(t, pub.got, 1)
}

func TestIngest_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := &fakePublisher{err: context.Canceled}

	err := NewIngest(pub, time.Second).Handle(ctx)(nil, []byte(`{"agent_id":"agent_1001","lat":1,"lng":2}`))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestIngest_WithHub(t *testing.T) {
	hub := realtime.NewHub(nil)
	h := NewIngest(hub, time.Second).Handle(context.Background())

	require.NoError(t, h(nil, []byte(`{"agent_id":"agent_1001","lat":1,"lng":2}`)))
	require.NoError(t, h(nil, []byte(`{"agent_id":"","lat":1,"lng":2}`)))
}
