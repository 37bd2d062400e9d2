package farm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// ErrInvalidInput wraps every onboarding validation failure.
var ErrInvalidInput = errors.New("invalid onboarding input")

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldInput is one field as entered during onboarding.
type FieldInput struct {
	Name              string            `json:"name"              validate:"required,max=100"`
	Area              float64           `json:"area"              validate:"gte=0"`
	AreaUnit          string            `json:"areaUnit"`
	CropType          string            `json:"cropType"          validate:"max=60"`
	GrowthStage       string            `json:"growthStage"       validate:"omitempty,oneof=not_planted germination seedling vegetative flowering fruiting mature harvested"`
	SoilType          string            `json:"soilType"`
	SoilHealth        models.SoilHealth `json:"soilHealth"`
	IrrigationType    string            `json:"irrigationType"`
	WaterAvailability string            `json:"waterAvailability" validate:"omitempty,oneof=abundant adequate limited scarce"`
}

// OnboardingInput is the body of an initialize-farm request.
type OnboardingInput struct {
	Location      models.Location `json:"location"`
	FarmingMethod string          `json:"farmingMethod"`
	Fields        []FieldInput    `json:"fields" validate:"required,min=1,max=50,dive"`
}

// Validate checks the input and returns an ErrInvalidInput-wrapped error that
// names the first offending field.
func (in OnboardingInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidInput, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func (fi FieldInput) toField(userID uuid.UUID, now time.Time) models.Field {
	unit := fi.AreaUnit
	if unit == "" {
		unit = "hectares"
	}
	return models.Field{
		ID:                uuid.New(),
		UserID:            userID,
		Name:              strings.TrimSpace(fi.Name),
		Area:              fi.Area,
		AreaUnit:          unit,
		CropType:          strings.TrimSpace(fi.CropType),
		GrowthStage:       fi.GrowthStage,
		SoilType:          fi.SoilType,
		SoilHealth:        fi.SoilHealth,
		IrrigationType:    fi.IrrigationType,
		WaterAvailability: fi.WaterAvailability,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
