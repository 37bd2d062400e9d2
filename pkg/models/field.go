package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StageNotPlanted  = "not_planted"
	StageGermination = "germination"
	StageSeedling    = "seedling"
	StageVegetative  = "vegetative"
	StageFlowering   = "flowering"
	StageFruiting    = "fruiting"
	StageMature      = "mature"
	StageHarvested   = "harvested"
)

const (
	WaterAbundant = "abundant"
	WaterAdequate = "adequate"
	WaterLimited  = "limited"
	WaterScarce   = "scarce"
)

// SoilHealth holds soil measurements as the farmer entered them.
type SoilHealth struct {
	PH            string `json:"pH"             yaml:"pH"`
	Nitrogen      string `json:"nitrogen"       yaml:"nitrogen"`
	Phosphorus    string `json:"phosphorus"     yaml:"phosphorus"`
	Potassium     string `json:"potassium"      yaml:"potassium"`
	OrganicMatter string `json:"organicMatter"  yaml:"organic_matter"`
}

// ParsePH returns the numeric pH and whether it could be parsed.
func (s SoilHealth) ParsePH() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.PH), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Field is a plot of land registered by a user.
type Field struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	Name              string         `json:"name"`
	Area              float64        `json:"area"`
	AreaUnit          string         `json:"area_unit"`
	CropType          string         `json:"crop_type"`
	GrowthStage       string         `json:"growth_stage"`
	SoilType          string         `json:"soil_type"`
	SoilHealth        SoilHealth     `json:"soil_health"`
	IrrigationType    string         `json:"irrigation_type"`
	WaterAvailability string         `json:"water_availability"`
	Analysis          *FieldAnalysis `json:"analysis,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Planted reports whether the field carries a crop that can be predicted.
func (f Field) Planted() bool {
	return f.CropType != "" && f.GrowthStage != "" && f.GrowthStage != StageNotPlanted
}
