package orders

import (
	"time"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

// ApplyStatus sets the order status and appends one history entry.
// Any status may follow any other; only values outside the enumeration are rejected.
// A timestamp earlier than the last entry is clamped so history stays chronological.
func ApplyStatus(o *models.Order, status models.Status, at time.Time) error {
	if o == nil {
		return errors.Wrap(models.ErrNotFound, "apply status")
	}
	if !status.Valid() {
		return errors.Wrapf(models.ErrValidation, "status %q is not a valid enum value", status)
	}

	at = at.UTC()
	if last, ok := o.LastStatusEntry(); ok && at.Before(last.Timestamp) {
		at = last.Timestamp
	}

	o.Status = status
	o.StatusHistory = append(o.StatusHistory, models.StatusEntry{Status: status, Timestamp: at})
	o.UpdatedAt = at
	return nil
}

// VerifyCode checks the one-time code and marks the order Delivered on match.
// On mismatch the order is left untouched.
func VerifyCode(o *models.Order, code string, at time.Time) error {
	if o == nil {
		return errors.Wrap(models.ErrNotFound, "verify code")
	}
	if o.OTP == "" || o.OTP != code {
		return errors.Wrapf(models.ErrUnauthorized, "verification code mismatch for order %s", o.OrderID)
	}
	return ApplyStatus(o, models.StatusDelivered, at)
}

// Seed starts the history of a freshly created order.
func Seed(o *models.Order, at time.Time) error {
	initial := o.Status
	if initial == "" {
		initial = models.StatusScheduled
	}
	o.Status = ""
	o.StatusHistory = nil
	o.CreatedAt = at.UTC()
	return ApplyStatus(o, initial, at)
}
