// Package client is a Go client for the Farmer's Desk HTTP API, including the
// poll loops used to wait for background work.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client talks to one server. Set Token after Login or supply one directly.
type Client struct {
	baseURL    string
	Token      string
	httpClient *http.Client
	newPoller  func(Policy) *Poller
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		newPoller:  NewPoller,
	}
}

// Session is returned by Login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// FieldSpec describes one field in an onboarding request.
type FieldSpec struct {
	Name              string            `json:"name"                        yaml:"name"`
	Area              float64           `json:"area"                        yaml:"area"`
	AreaUnit          string            `json:"areaUnit,omitempty"          yaml:"area_unit"`
	CropType          string            `json:"cropType,omitempty"          yaml:"crop_type"`
	GrowthStage       string            `json:"growthStage,omitempty"       yaml:"growth_stage"`
	SoilType          string            `json:"soilType,omitempty"          yaml:"soil_type"`
	SoilHealth        models.SoilHealth `json:"soilHealth"                  yaml:"soil_health"`
	IrrigationType    string            `json:"irrigationType,omitempty"    yaml:"irrigation_type"`
	WaterAvailability string            `json:"waterAvailability,omitempty" yaml:"water_availability"`
}

// Onboarding is the body of an initialize-farm request.
type Onboarding struct {
	Location      models.Location `json:"location"                yaml:"location"`
	FarmingMethod string          `json:"farmingMethod,omitempty" yaml:"farming_method"`
	Fields        []FieldSpec     `json:"fields"                  yaml:"fields"`
}

// InitStatus is the state of a farm initialization job.
type InitStatus struct {
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep"`
	Error       string `json:"error,omitempty"`
}

// PlanRequest is the body of a create-plan request.
type PlanRequest struct {
	Title      string    `json:"title"`
	PlanType   string    `json:"planType"`
	FieldID    uuid.UUID `json:"fieldId"`
	StartDate  string    `json:"startDate"`
	Duration   int       `json:"duration"`
	Priority   string    `json:"priority,omitempty"`
	Objectives []string  `json:"objectives,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// PlanRef is returned when a plan is created.
type PlanRef struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Status string    `json:"status"`
}

// PlanStatus is the lightweight plan view used while generation runs.
type PlanStatus struct {
	ID        uuid.UUID           `json:"id"`
	Status    string              `json:"status"`
	TaskCount int                 `json:"taskCount"`
	Progress  models.PlanProgress `json:"progress"`
	IsReady   bool                `json:"isReady"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}
	return raw, nil
}

// data sends a request and decodes the envelope's data member into out.
func (c *Client) data(ctx context.Context, method, path string, in, out any) error {
	raw, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

// started sends a request answered with a top-level handle like jobId.
func (c *Client) started(ctx context.Context, path, key string, in any) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return "", err
	}
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	id, _ := resp[key].(string)
	if id == "" {
		return "", fmt.Errorf("response has no %s", key)
	}
	return id, nil
}

// Login exchanges credentials for a session and stores its token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.data(ctx, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": email, "password": password}, &s); err != nil {
		return nil, err
	}
	c.Token = s.Token
	return &s, nil
}

// InitializeFarm starts onboarding and returns the job ID.
func (c *Client) InitializeFarm(ctx context.Context, in Onboarding) (string, error) {
	return c.started(ctx, "/api/v1/initialize-farm", "jobId", in)
}

func (c *Client) InitializationStatus(ctx context.Context, jobID string) (*InitStatus, error) {
	var st InitStatus
	if err := c.data(ctx, http.MethodGet, "/api/v1/initialization-status/"+jobID, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) CreatePlan(ctx context.Context, in PlanRequest) (*PlanRef, error) {
	var ref PlanRef
	if err := c.data(ctx, http.MethodPost, "/api/v1/plans", in, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (c *Client) PlanStatus(ctx context.Context, planID uuid.UUID) (*PlanStatus, error) {
	var st PlanStatus
	if err := c.data(ctx, http.MethodGet, "/api/v1/plans/"+planID.String()+"/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) GetPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	var p models.Plan
	if err := c.data(ctx, http.MethodGet, "/api/v1/plans/"+planID.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RequestYieldPrediction starts a prediction and returns its ID.
func (c *Client) RequestYieldPrediction(ctx context.Context, in models.YieldInput) (uuid.UUID, error) {
	id, err := c.started(ctx, "/api/v1/predictions/yield", "predictionId", in)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(id)
}

func (c *Client) GetPrediction(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	var p models.Prediction
	if err := c.data(ctx, http.MethodGet, "/api/v1/predictions/yield/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
