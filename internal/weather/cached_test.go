package weather_test

import (
	"context"
	"testing"
	"time"

	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/kiranshivaraju/farmdesk/internal/weather"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
	"github.com/stretchr/testify/assert"
)

type countingProvider struct {
	calls int
	w     models.Weather
}

func (p *countingProvider) Current(_ context.Context, _ models.Location) models.Weather {
	p.calls++
	return p.w
}

func TestCached_ReusesRealSnapshot(t *testing.T) {
	next := &countingProvider{w: models.Weather{Temperature: 18, Conditions: "fog"}}
	c := weather.NewCached(next, cache.NewMemoryCache(), time.Minute)
	loc := models.Location{City: "Eldoret", Country: "KE"}

	first := c.Current(context.Background(), loc)
	second := c.Current(context.Background(), loc)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Conditions, second.Conditions)
	assert.InDelta(t, 18, second.Temperature, 0.001)
}

func TestCached_DoesNotCacheMock(t *testing.T) {
	next := &countingProvider{w: weather.Mock(time.Now())}
	c := weather.NewCached(next, cache.NewMemoryCache(), time.Minute)
	loc := models.Location{City: "Eldoret"}

	c.Current(context.Background(), loc)
	c.Current(context.Background(), loc)

	assert.Equal(t, 2, next.calls)
}
