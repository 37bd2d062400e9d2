// Package weather looks up current conditions for a farm location.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var (
	ErrWeatherUnavailable = errors.New("weather service unavailable")
	ErrNoLocation         = errors.New("location has neither coordinates nor city")
)

// Provider returns a weather snapshot. Current never fails: when the upstream
// service is unreachable a deterministic mock snapshot is returned instead.
type Provider interface {
	Current(ctx context.Context, loc models.Location) models.Weather
}

// HTTPClient queries an OpenWeatherMap-compatible API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

func NewHTTPClient(cfg config.WeatherConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		now:     time.Now,
	}
}

type currentResponse struct {
	Main    mainBlock          `json:"main"`
	Wind    windBlock          `json:"wind"`
	Rain    map[string]float64 `json:"rain"`
	Weather []conditionBlock   `json:"weather"`
	Dt      int64              `json:"dt"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

type conditionBlock struct {
	Description string `json:"description"`
}

func (c *HTTPClient) Current(ctx context.Context, loc models.Location) models.Weather {
	if c.apiKey == "" {
		return Mock(c.now())
	}

	w, err := c.fetch(ctx, loc)
	if err != nil {
		slog.Warn("weather lookup failed, using mock", "city", loc.City, "error", err)
		return Mock(c.now())
	}
	return w
}

func (c *HTTPClient) fetch(ctx context.Context, loc models.Location) (models.Weather, error) {
	params := url.Values{
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	switch {
	case loc.Lat != 0 || loc.Lon != 0:
		params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	case loc.City != "":
		q := loc.City
		if loc.Country != "" {
			q += "," + loc.Country
		}
		params.Set("q", q)
	default:
		return models.Weather{}, ErrNoLocation
	}

	u := fmt.Sprintf("%s/data/2.5/weather?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Weather{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Weather{}, fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Weather{}, fmt.Errorf("%w: status %d", ErrWeatherUnavailable, resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Weather{}, fmt.Errorf("decoding weather response: %w", err)
	}

	w := models.Weather{
		Temperature: body.Main.Temp,
		Humidity:    body.Main.Humidity,
		Rainfall:    body.Rain["1h"],
		WindSpeed:   body.Wind.Speed,
		Conditions:  "unknown",
		ObservedAt:  c.now().UTC(),
	}
	if len(body.Weather) > 0 && body.Weather[0].Description != "" {
		w.Conditions = body.Weather[0].Description
	}
	if body.Dt > 0 {
		w.ObservedAt = time.Unix(body.Dt, 0).UTC()
	}
	return w, nil
}

// Mock returns the fixed snapshot used whenever real data is unavailable.
func Mock(now time.Time) models.Weather {
	return models.Weather{
		Temperature: 25,
		Humidity:    60,
		Rainfall:    0,
		WindSpeed:   3.5,
		Conditions:  "partly cloudy",
		Mock:        true,
		ObservedAt:  now.UTC(),
	}
}

var _ Provider = (*HTTPClient)(nil)
