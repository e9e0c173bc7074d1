package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/courierlive/internal/integrations/geocoder"
	"github.com/BearBump/courierlive/internal/models"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client resolves free-form addresses with the Nominatim search API.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
}

func New(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = "courierlive/1.0"
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Geocode(ctx context.Context, address string) (models.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.Location{}, errors.Wrap(models.ErrValidation, "address is empty")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.Location{}, errors.Wrap(err, "parse base url")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/search"

	q := u.Query()
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", address)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Location{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Location{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.Location{}, fmt.Errorf("nominatim http %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Location{}, errors.Wrap(err, "decode")
	}
	if len(results) == 0 {
		return models.Location{}, errors.Wrapf(geocoder.ErrNoMatch, "%q", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, errors.Wrap(err, "parse lat")
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, errors.Wrap(err, "parse lon")
	}
	loc := models.Location{Lat: lat, Lng: lng}
	if err := loc.Validate(); err != nil {
		return models.Location{}, err
	}
	return loc, nil
}
