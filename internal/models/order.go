package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Status is the delivery status of an order.
type Status string

const (
	StatusScheduled      Status = "Scheduled"
	StatusReachedStore   Status = "Reached Store"
	StatusPickedUp       Status = "Picked Up"
	StatusOutForDelivery Status = "Out for Delivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

// Statuses lists every accepted status in lifecycle order.
var Statuses = []Status{
	StatusScheduled,
	StatusReachedStore,
	StatusPickedUp,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts the exact enumeration value, surrounding whitespace ignored.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", errors.Wrapf(ErrValidation, "status %q is not a valid enum value", raw)
	}
	return s, nil
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) IsZero() bool { return l.Lat == 0 && l.Lng == 0 }

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return errors.Wrapf(ErrValidation, "lat %v is out of range", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return errors.Wrapf(ErrValidation, "lng %v is out of range", l.Lng)
	}
	return nil
}

type Customer struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (c Customer) Location() Location { return Location{Lat: c.Lat, Lng: c.Lng} }

type Item struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type StatusEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is the persisted order document.
type Order struct {
	ID              string        `json:"_id"`
	OrderID         string        `json:"orderId"`
	Customer        Customer      `json:"customer"`
	Items           []Item        `json:"items"`
	PreferredTime   string        `json:"preferredTime,omitempty"`
	Status          Status        `json:"status"`
	StatusHistory   []StatusEntry `json:"statusHistory"`
	AssignedAgentID *string       `json:"assignedAgentId"`
	OTP             string        `json:"otp"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	StoreLocation   Location      `json:"storeLocation"`
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.StatusHistory = append([]StatusEntry(nil), o.StatusHistory...)
	if o.AssignedAgentID != nil {
		id := *o.AssignedAgentID
		c.AssignedAgentID = &id
	}
	return &c
}

// LastStatusEntry returns the most recent history entry, if any.
func (o *Order) LastStatusEntry() (StatusEntry, bool) {
	if len(o.StatusHistory) == 0 {
		return StatusEntry{}, false
	}
	return o.StatusHistory[len(o.StatusHistory)-1], true
}

// OrderCreateInput is what a client may supply when placing an order.
// Items may come either as a list or as the "Pizza:1, Coke:2" text form.
type OrderCreateInput struct {
	Customer      Customer
	Items         []Item
	ItemsText     string
	PreferredTime string
	Status        Status
	StoreLocation *Location
}
