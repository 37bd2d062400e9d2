package cache

import (
	"fmt"
	"strings"
)

func JobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}

// WeatherKey normalizes the location so "Nairobi, KE" and "nairobi,ke" share an entry.
func WeatherKey(location string) string {
	return fmt.Sprintf("weather:%s", strings.ToLower(strings.ReplaceAll(location, " ", "")))
}
