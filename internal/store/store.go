package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
//
// Every read and update of a user-owned document is scoped by userID; a document
// owned by someone else is reported as ErrNotFound. SavePlan recomputes the
// plan's progress before writing.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateField(ctx context.Context, field *models.Field) error
	GetField(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Field, error)
	ListFields(ctx context.Context, userID uuid.UUID) ([]*models.Field, error)
	UpdateField(ctx context.Context, field *models.Field) error
	DeleteField(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error

	CreateAlert(ctx context.Context, alert *models.Alert) error
	ListAlerts(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error)
	MarkAlertRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreatePlan(ctx context.Context, plan *models.Plan) error
	GetPlan(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Plan, error)
	ListPlans(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error)
	SavePlan(ctx context.Context, plan *models.Plan) error

	CreatePrediction(ctx context.Context, p *models.Prediction) error
	GetPrediction(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Prediction, error)
	ListPredictions(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error)
	SavePrediction(ctx context.Context, p *models.Prediction) error
}
