package realtime

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

// Client to server events.
const (
	EventTrackJoin     = "track:join"
	EventAgentJoin     = "agent:join"
	EventAgentLocation = "agent:location"
	EventAgentStatus   = "agent:status"
)

// Server to client events. agent:location is also rebroadcast globally.
const (
	EventOrderCreated       = "order:created"
	EventOrderStatus        = "order:status"
	EventOrderAssigned      = "order:assigned"
	EventOrderAgentLocation = "order:agent_location"
	EventError              = "error"
)

const maxIDLength = 128

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is one of TrackJoin, AgentJoin, AgentLocation or StatusUpdate.
type Inbound interface {
	Event() string
}

type TrackJoin struct {
	OrderID string
}

func (TrackJoin) Event() string { return EventTrackJoin }

type AgentJoin struct {
	AgentID string
}

func (AgentJoin) Event() string { return EventAgentJoin }

// AgentLocation is a live position fix. Timestamp is epoch milliseconds.
type AgentLocation struct {
	AgentID   string  `json:"agentId"`
	OrderID   string  `json:"orderId,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
	Timestamp int64   `json:"timestamp"`
}

func (AgentLocation) Event() string { return EventAgentLocation }

func (p AgentLocation) Validate() error {
	if err := validateID("agentId", p.AgentID); err != nil {
		return err
	}
	if len(p.OrderID) > maxIDLength {
		return errors.Wrap(models.ErrValidation, "orderId is too long")
	}
	for name, v := range map[string]float64{
		"lat": p.Lat, "lng": p.Lng, "accuracy": p.Accuracy, "heading": p.Heading, "speed": p.Speed,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(models.ErrValidation, "%s is not a finite number", name)
		}
	}
	if err := (models.Location{Lat: p.Lat, Lng: p.Lng}).Validate(); err != nil {
		return err
	}
	if p.Accuracy < 0 {
		return errors.Wrap(models.ErrValidation, "accuracy must not be negative")
	}
	if p.Speed < 0 {
		return errors.Wrap(models.ErrValidation, "speed must not be negative")
	}
	return nil
}

// StatusUpdate is an agent reporting a status change for an order.
type StatusUpdate struct {
	OrderID string        `json:"orderId"`
	Status  models.Status `json:"status"`
	AgentID string        `json:"agentId,omitempty"`
	Time    int64         `json:"time,omitempty"`
}

func (StatusUpdate) Event() string { return EventAgentStatus }

func (p StatusUpdate) Validate() error {
	if err := validateID("orderId", p.OrderID); err != nil {
		return err
	}
	if !p.Status.Valid() {
		return errors.Wrapf(models.ErrValidation, "status %q is not a valid enum value", p.Status)
	}
	if len(p.AgentID) > maxIDLength {
		return errors.Wrap(models.ErrValidation, "agentId is too long")
	}
	return nil
}

// OrderStatusEvent is the payload of order:status.
type OrderStatusEvent struct {
	OrderID string        `json:"orderId"`
	Status  models.Status `json:"status"`
	Time    time.Time     `json:"time"`
	AgentID string        `json:"agentId,omitempty"`
}

// OrderAssignedEvent is the payload of order:assigned.
type OrderAssignedEvent struct {
	OrderID string `json:"orderId"`
	AgentID string `json:"agentId"`
}

// ErrorEvent is sent back to the emitting connection only.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// DecodeFrame turns a raw frame into a validated inbound event.
func DecodeFrame(f Frame) (Inbound, error) {
	switch f.Type {
	case EventTrackJoin:
		id, err := decodeRoomID(f.Payload, "orderId")
		if err != nil {
			return nil, err
		}
		return TrackJoin{OrderID: id}, nil
	case EventAgentJoin:
		id, err := decodeRoomID(f.Payload, "agentId")
		if err != nil {
			return nil, err
		}
		return AgentJoin{AgentID: id}, nil
	case EventAgentLocation:
		var p AgentLocation
		if err := decodeObject(f.Payload, &p); err != nil {
			return nil, err
		}
		p.AgentID = strings.TrimSpace(p.AgentID)
		p.OrderID = strings.TrimSpace(p.OrderID)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	case EventAgentStatus:
		var p StatusUpdate
		if err := decodeObject(f.Payload, &p); err != nil {
			return nil, err
		}
		p.OrderID = strings.TrimSpace(p.OrderID)
		p.AgentID = strings.TrimSpace(p.AgentID)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.Wrapf(models.ErrValidation, "unsupported event %q", f.Type)
	}
}

// decodeRoomID accepts either a bare JSON string or an object carrying field.
func decodeRoomID(raw json.RawMessage, field string) (string, error) {
	raw = bytes.TrimSpace(raw)
	var id string
	if len(raw) > 0 && raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", errors.Wrapf(models.ErrValidation, "invalid %s payload", field)
		}
		if err := json.Unmarshal(obj[field], &id); err != nil {
			return "", errors.Wrapf(models.ErrValidation, "%s must be a string", field)
		}
	} else if err := json.Unmarshal(raw, &id); err != nil {
		return "", errors.Wrapf(models.ErrValidation, "%s must be a string", field)
	}
	id = strings.TrimSpace(id)
	if err := validateID(field, id); err != nil {
		return "", err
	}
	return id, nil
}

func decodeObject(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return errors.Wrap(models.ErrValidation, "payload must be an object")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(models.ErrValidation, "invalid payload: %v", err)
	}
	return nil
}

func validateID(field, id string) error {
	if id == "" {
		return errors.Wrapf(models.ErrValidation, "%s is required", field)
	}
	if len(id) > maxIDLength {
		return errors.Wrapf(models.ErrValidation, "%s is too long", field)
	}
	return nil
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
