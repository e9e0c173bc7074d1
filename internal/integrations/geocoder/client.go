package geocoder

import (
	"context"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

// ErrNoMatch means the provider answered but found nothing for the address.
var ErrNoMatch = errors.New("geocoder: no match")

type Client interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
}
