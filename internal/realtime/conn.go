package realtime

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Conn is one realtime client. Writes are serialised so frames reach the
// peer in send order.
type Conn struct {
	id string

	mu  sync.Mutex
	enc *json.Encoder
}

func NewConn(id string, w io.Writer) *Conn {
	return &Conn{id: id, enc: json.NewEncoder(w)}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(f); err != nil {
		return errors.Wrapf(err, "send %s to %s", f.Type, c.id)
	}
	return nil
}

// SendError answers a rejected frame on this connection only.
func (c *Conn) SendError(code, message, event string) error {
	return c.Send(Frame{
		Type:    EventError,
		Payload: mustJSON(ErrorEvent{Code: code, Message: message, Event: event}),
	})
}
