package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// Cached stores real snapshots per location so that initializing a farm with
// many fields makes one upstream call. Mock snapshots are never cached.
type Cached struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

func NewCached(next Provider, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) Current(ctx context.Context, loc models.Location) models.Weather {
	key := cache.WeatherKey(locationKey(loc))

	if b, found, err := c.cache.Get(ctx, key); err == nil && found {
		var w models.Weather
		if err := json.Unmarshal(b, &w); err == nil {
			return w
		}
	}

	w := c.next.Current(ctx, loc)
	if w.Mock {
		return w
	}

	b, err := json.Marshal(w)
	if err == nil {
		err = c.cache.Set(ctx, key, b, c.ttl)
	}
	if err != nil {
		slog.Warn("caching weather snapshot", "city", loc.City, "error", err)
	}
	return w
}

func locationKey(loc models.Location) string {
	if loc.Lat != 0 || loc.Lon != 0 {
		return fmt.Sprintf("%.2f,%.2f", loc.Lat, loc.Lon)
	}
	return loc.City + "," + loc.Country
}

var _ Provider = (*Cached)(nil)
