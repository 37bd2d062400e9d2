package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. Nested values
// (soil health, plan tasks, prediction payloads) are stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

const userColumns = `id, email, name, password_hash, location, farming_method, initialization_status, initialized_at, farm_advice, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Location, &u.FarmingMethod,
		&u.InitializationStatus, &u.InitializedAt, &u.FarmAdvice, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, strings.ToLower(u.Email), u.Name, u.PasswordHash, u.Location, u.FarmingMethod,
		u.InitializationStatus, u.InitializedAt, u.FarmAdvice, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $2, location = $3, farming_method = $4, initialization_status = $5,
		 initialized_at = $6, farm_advice = $7, updated_at = $8 WHERE id = $1`,
		u.ID, u.Name, u.Location, u.FarmingMethod, u.InitializationStatus, u.InitializedAt, u.FarmAdvice, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Fields ---

const fieldColumns = `id, user_id, name, area, area_unit, crop_type, growth_stage, soil_type, soil_health, irrigation_type, water_availability, analysis, created_at, updated_at`

func scanField(row pgx.Row) (*models.Field, error) {
	var f models.Field
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Area, &f.AreaUnit, &f.CropType, &f.GrowthStage,
		&f.SoilType, &f.SoilHealth, &f.IrrigationType, &f.WaterAvailability, &f.Analysis, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) CreateField(ctx context.Context, f *models.Field) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fields (`+fieldColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		f.ID, f.UserID, f.Name, f.Area, f.AreaUnit, f.CropType, f.GrowthStage, f.SoilType, f.SoilHealth,
		f.IrrigationType, f.WaterAvailability, f.Analysis, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create field: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetField(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Field, error) {
	f, err := scanField(s.pool.QueryRow(ctx,
		`SELECT `+fieldColumns+` FROM fields WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get field: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) UpdateField(ctx context.Context, f *models.Field) error {
	f.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE fields SET name = $3, area = $4, area_unit = $5, crop_type = $6, growth_stage = $7, soil_type = $8,
		 soil_health = $9, irrigation_type = $10, water_availability = $11, analysis = $12, updated_at = $13
		 WHERE id = $1 AND user_id = $2`,
		f.ID, f.UserID, f.Name, f.Area, f.AreaUnit, f.CropType, f.GrowthStage, f.SoilType,
		f.SoilHealth, f.IrrigationType, f.WaterAvailability, f.Analysis, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteField(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fields WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListFields(ctx context.Context, userID uuid.UUID) ([]*models.Field, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+fieldColumns+` FROM fields WHERE user_id = $1 ORDER BY created_at, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	fields := []*models.Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// --- Tasks ---

const taskColumns = `id, user_id, field_id, title, description, type, priority, status, due_date, ai_generated, initial_setup, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.FieldID, &t.Title, &t.Description, &t.Type, &t.Priority,
		&t.Status, &t.DueDate, &t.AIGenerated, &t.InitialSetup, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.UserID, t.FieldID, t.Title, t.Description, t.Type, t.Priority, t.Status, t.DueDate,
		t.AIGenerated, t.InitialSetup, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY due_date, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET title = $3, description = $4, priority = $5, status = $6, due_date = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Alerts ---

func (s *PostgresStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (id, user_id, field_id, type, severity, title, message, read, ai_generated, initial_setup, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.UserID, a.FieldID, a.Type, a.Severity, a.Title, a.Message, a.Read, a.AIGenerated,
		a.InitialSetup, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, field_id, type, severity, title, message, read, ai_generated, initial_setup, created_at
		 FROM alerts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.FieldID, &a.Type, &a.Severity, &a.Title, &a.Message,
			&a.Read, &a.AIGenerated, &a.InitialSetup, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) MarkAlertRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alerts SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Plans ---

const planColumns = `id, user_id, field_id, title, plan_type, status, priority, objectives, start_date, duration, end_date,
	tasks, ai_recommendations, resource_requirements, progress, notes, created_at, updated_at`

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var p models.Plan
	err := row.Scan(&p.ID, &p.UserID, &p.FieldID, &p.Title, &p.PlanType, &p.Status, &p.Priority, &p.Objectives,
		&p.StartDate, &p.Duration, &p.EndDate, &p.Tasks, &p.AIRecommendations, &p.ResourceRequirements,
		&p.Progress, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreatePlan(ctx context.Context, p *models.Plan) error {
	p.RecomputeProgress()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO plans (`+planColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.UserID, p.FieldID, p.Title, p.PlanType, p.Status, p.Priority, jsonArray(p.Objectives),
		p.StartDate, p.Duration, p.EndDate, jsonArray(p.Tasks), jsonArray(p.AIRecommendations),
		jsonArray(p.ResourceRequirements), p.Progress, p.Notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Plan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []*models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) SavePlan(ctx context.Context, p *models.Plan) error {
	p.RecomputeProgress()
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE plans SET title = $3, status = $4, priority = $5, objectives = $6, tasks = $7,
		 ai_recommendations = $8, resource_requirements = $9, progress = $10, notes = $11, updated_at = $12
		 WHERE id = $1 AND user_id = $2`,
		p.ID, p.UserID, p.Title, p.Status, p.Priority, jsonArray(p.Objectives), jsonArray(p.Tasks),
		jsonArray(p.AIRecommendations), jsonArray(p.ResourceRequirements), p.Progress, p.Notes, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Predictions ---

const predictionColumns = `id, user_id, field_id, input, raw_response, prediction, status, ai_generated, initial_setup, error, created_at, updated_at`

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	var p models.Prediction
	err := row.Scan(&p.ID, &p.UserID, &p.FieldID, &p.Input, &p.RawResponse, &p.Prediction, &p.Status,
		&p.AIGenerated, &p.InitialSetup, &p.Error, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreatePrediction(ctx context.Context, p *models.Prediction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions (`+predictionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.UserID, p.FieldID, p.Input, p.RawResponse, p.Prediction, p.Status, p.AIGenerated,
		p.InitialSetup, p.Error, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create prediction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Prediction, error) {
	p, err := scanPrediction(s.pool.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	predictions := []*models.Prediction{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// SavePrediction writes the mutable part of a prediction. Terminal predictions in
// the database are never overwritten.
func (s *PostgresStore) SavePrediction(ctx context.Context, p *models.Prediction) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE predictions SET raw_response = $3, prediction = $4, status = $5, ai_generated = $6, error = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2 AND status NOT IN ('completed', 'failed')`,
		p.ID, p.UserID, p.RawResponse, p.Prediction, p.Status, p.AIGenerated, p.Error, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// jsonArray keeps nil slices from being written as SQL NULL into NOT NULL JSONB columns.
func jsonArray[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
