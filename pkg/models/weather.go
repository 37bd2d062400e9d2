package models

import "time"

// Weather is a fixed-shape snapshot of current conditions at a location.
type Weather struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Rainfall    float64   `json:"rainfall"`
	WindSpeed   float64   `json:"wind_speed"`
	Conditions  string    `json:"conditions"`
	Mock        bool      `json:"mock"`
	ObservedAt  time.Time `json:"observed_at"`
}
