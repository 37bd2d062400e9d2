package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/farmdesk/pkg/client"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var (
	predictFieldID string
	predictCrop    string
	predictArea    float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Request a yield prediction and wait for it",
	Long:  "Requests a yield prediction for a field or for explicit crop parameters. Unset parameters are filled from the field.",
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictFieldID, "field", "", "Field ID")
	predictCmd.Flags().StringVar(&predictCrop, "crop", "", "Crop type")
	predictCmd.Flags().Float64Var(&predictArea, "area", 0, "Area in hectares")

	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, _ []string) error {
	in := models.YieldInput{CropType: predictCrop, Area: predictArea}
	if predictFieldID != "" {
		id, err := uuid.Parse(predictFieldID)
		if err != nil {
			return fmt.Errorf("invalid field: %w", err)
		}
		in.FieldID = &id
	}
	if in.FieldID == nil && in.CropType == "" {
		return fmt.Errorf("either --field or --crop is required")
	}

	c := newClient()
	id, err := c.RequestYieldPrediction(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("request prediction: %w", err)
	}

	out := cmd.OutOrStdout()
	outcome, p, err := c.WaitForPrediction(cmd.Context(), id, nil)
	if err != nil {
		return err
	}
	switch {
	case outcome == client.Succeeded && p.Prediction != nil:
		y := p.Prediction
		fmt.Fprintf(out, "predicted yield: %.2f %s (confidence %.0f%%)\n", y.PredictedYield, y.Unit, y.Confidence)
		for _, r := range y.Recommendations {
			fmt.Fprintf(out, "  - [%s] %s\n", r.Priority, r.Action)
		}
		if !p.AIGenerated {
			fmt.Fprintln(out, "  (estimate from crop baselines)")
		}
	case outcome == client.Failed:
		return fmt.Errorf("prediction failed: %s", p.Error)
	default:
		fmt.Fprintf(out, "prediction %s is still processing\n", id)
	}
	return nil
}
