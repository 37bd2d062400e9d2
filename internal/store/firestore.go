package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
	"google.golang.org/api/iterator"
)

const (
	colUsers       = "users"
	colFields      = "fields"
	colTasks       = "tasks"
	colAlerts      = "alerts"
	colPlans       = "plans"
	colPredictions = "predictions"
)

// FirestoreStore implements Store on Cloud Firestore. Each model is stored as a
// document keyed by its ID, with the same keys as the model's JSON encoding.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreClient creates a Firestore client for the given project.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Ping reads a document that need not exist; only transport errors fail.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	snap, err := s.client.Collection(colUsers).Doc("_ping").Get(ctx)
	if err != nil && (snap == nil || snap.Exists()) {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

func toDoc(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromDoc[T any](snap *firestore.DocumentSnapshot) (*T, error) {
	b, err := json.Marshal(snap.Data())
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", snap.Ref.Path, err)
	}
	return out, nil
}

func (s *FirestoreStore) create(ctx context.Context, col string, id uuid.UUID, v any) error {
	data, err := toDoc(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", col, err)
	}
	if _, err := s.client.Collection(col).Doc(id.String()).Create(ctx, data); err != nil {
		return fmt.Errorf("create %s: %w", col, err)
	}
	return nil
}

func (s *FirestoreStore) set(ctx context.Context, col string, id uuid.UUID, v any) error {
	data, err := toDoc(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", col, err)
	}
	if _, err := s.client.Collection(col).Doc(id.String()).Set(ctx, data); err != nil {
		return fmt.Errorf("save %s: %w", col, err)
	}
	return nil
}

// getOwned loads a document and checks that it belongs to userID.
func getOwned[T any](ctx context.Context, s *FirestoreStore, col string, id, userID uuid.UUID) (*T, error) {
	snap, err := s.client.Collection(col).Doc(id.String()).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", col, err)
	}
	if owner, _ := snap.Data()["user_id"].(string); owner != userID.String() {
		return nil, ErrNotFound
	}
	return fromDoc[T](snap)
}

func listOwned[T any](ctx context.Context, s *FirestoreStore, col string, userID uuid.UUID) ([]*T, error) {
	iter := s.client.Collection(col).Where("user_id", "==", userID.String()).Documents(ctx)
	defer iter.Stop()

	out := []*T{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", col, err)
		}
		v, err := fromDoc[T](snap)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// --- Users ---

func userDoc(u *models.User) (map[string]any, error) {
	data, err := toDoc(u)
	if err != nil {
		return nil, err
	}
	data["email"] = strings.ToLower(u.Email)
	data["password_hash"] = u.PasswordHash
	return data, nil
}

func userFromDoc(snap *firestore.DocumentSnapshot) (*models.User, error) {
	u, err := fromDoc[models.User](snap)
	if err != nil {
		return nil, err
	}
	u.PasswordHash, _ = snap.Data()["password_hash"].(string)
	return u, nil
}

func (s *FirestoreStore) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateKey
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := userDoc(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if _, err := s.client.Collection(colUsers).Doc(u.ID.String()).Create(ctx, data); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	snap, err := s.client.Collection(colUsers).Doc(id.String()).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return userFromDoc(snap)
}

func (s *FirestoreStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := s.client.Collection(colUsers).Where("email", "==", strings.ToLower(email)).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return userFromDoc(docs[0])
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, u *models.User) error {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	updated := *u
	updated.Email = existing.Email
	updated.PasswordHash = existing.PasswordHash

	data, err := userDoc(&updated)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if _, err := s.client.Collection(colUsers).Doc(u.ID.String()).Set(ctx, data); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// --- Fields ---

func (s *FirestoreStore) CreateField(ctx context.Context, f *models.Field) error {
	return s.create(ctx, colFields, f.ID, f)
}

func (s *FirestoreStore) GetField(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Field, error) {
	return getOwned[models.Field](ctx, s, colFields, id, userID)
}

func (s *FirestoreStore) ListFields(ctx context.Context, userID uuid.UUID) ([]*models.Field, error) {
	fields, err := listOwned[models.Field](ctx, s, colFields, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].CreatedAt.Before(fields[j].CreatedAt) })
	return fields, nil
}

func (s *FirestoreStore) UpdateField(ctx context.Context, f *models.Field) error {
	if _, err := s.GetField(ctx, f.ID, f.UserID); err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()
	return s.set(ctx, colFields, f.ID, f)
}

func (s *FirestoreStore) DeleteField(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if _, err := s.GetField(ctx, id, userID); err != nil {
		return err
	}
	if _, err := s.client.Collection(colFields).Doc(id.String()).Delete(ctx); err != nil {
		return fmt.Errorf("delete field: %w", err)
	}
	return nil
}

// --- Tasks ---

func (s *FirestoreStore) CreateTask(ctx context.Context, t *models.Task) error {
	return s.create(ctx, colTasks, t.ID, t)
}

func (s *FirestoreStore) GetTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error) {
	return getOwned[models.Task](ctx, s, colTasks, id, userID)
}

func (s *FirestoreStore) ListTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	tasks, err := listOwned[models.Task](ctx, s, colTasks, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })
	return tasks, nil
}

func (s *FirestoreStore) UpdateTask(ctx context.Context, t *models.Task) error {
	if _, err := s.GetTask(ctx, t.ID, t.UserID); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()
	return s.set(ctx, colTasks, t.ID, t)
}

// --- Alerts ---

func (s *FirestoreStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	return s.create(ctx, colAlerts, a.ID, a)
}

func (s *FirestoreStore) ListAlerts(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error) {
	alerts, err := listOwned[models.Alert](ctx, s, colAlerts, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].CreatedAt.After(alerts[j].CreatedAt) })
	return alerts, nil
}

func (s *FirestoreStore) MarkAlertRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if _, err := getOwned[models.Alert](ctx, s, colAlerts, id, userID); err != nil {
		return err
	}
	_, err := s.client.Collection(colAlerts).Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	return nil
}

// --- Plans ---

func (s *FirestoreStore) CreatePlan(ctx context.Context, p *models.Plan) error {
	p.RecomputeProgress()
	return s.create(ctx, colPlans, p.ID, p)
}

func (s *FirestoreStore) GetPlan(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Plan, error) {
	return getOwned[models.Plan](ctx, s, colPlans, id, userID)
}

func (s *FirestoreStore) ListPlans(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error) {
	plans, err := listOwned[models.Plan](ctx, s, colPlans, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt.After(plans[j].CreatedAt) })
	return plans, nil
}

func (s *FirestoreStore) SavePlan(ctx context.Context, p *models.Plan) error {
	if _, err := s.GetPlan(ctx, p.ID, p.UserID); err != nil {
		return err
	}
	p.RecomputeProgress()
	p.UpdatedAt = time.Now().UTC()
	return s.set(ctx, colPlans, p.ID, p)
}

// --- Predictions ---

func (s *FirestoreStore) CreatePrediction(ctx context.Context, p *models.Prediction) error {
	return s.create(ctx, colPredictions, p.ID, p)
}

func (s *FirestoreStore) GetPrediction(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Prediction, error) {
	return getOwned[models.Prediction](ctx, s, colPredictions, id, userID)
}

func (s *FirestoreStore) ListPredictions(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error) {
	preds, err := listOwned[models.Prediction](ctx, s, colPredictions, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].CreatedAt.After(preds[j].CreatedAt) })
	return preds, nil
}

// SavePrediction runs in a transaction so a terminal prediction is never overwritten.
func (s *FirestoreStore) SavePrediction(ctx context.Context, p *models.Prediction) error {
	ref := s.client.Collection(colPredictions).Doc(p.ID.String())
	p.UpdatedAt = time.Now().UTC()
	data, err := toDoc(p)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if snap != nil && !snap.Exists() {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get prediction: %w", err)
		}
		current, err := fromDoc[models.Prediction](snap)
		if err != nil {
			return err
		}
		if current.UserID != p.UserID || current.Terminal() {
			return ErrNotFound
		}
		return tx.Set(ref, data)
	})
}

var _ Store = (*FirestoreStore)(nil)
