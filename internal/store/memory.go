package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// MemoryStore implements Store in process memory. It is used for local
// development (STORE_BACKEND=memory) and by service tests. Values are deep-copied
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*models.User
	fields      map[uuid.UUID]*models.Field
	tasks       map[uuid.UUID]*models.Task
	alerts      map[uuid.UUID]*models.Alert
	plans       map[uuid.UUID]*models.Plan
	predictions map[uuid.UUID]*models.Prediction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]*models.User),
		fields:      make(map[uuid.UUID]*models.Field),
		tasks:       make(map[uuid.UUID]*models.Task),
		alerts:      make(map[uuid.UUID]*models.Alert),
		plans:       make(map[uuid.UUID]*models.Plan),
		predictions: make(map[uuid.UUID]*models.Prediction),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// clone deep-copies v through JSON. PasswordHash is not serialized, so users
// are copied by value instead.
func clone[T any](v *T) *T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.InitializedAt != nil {
		t := *u.InitializedAt
		c.InitializedAt = &t
	}
	if u.FarmAdvice != nil {
		c.FarmAdvice = clone(u.FarmAdvice)
	}
	return &c
}

// --- Users ---

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicateKey
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateKey
		}
	}
	c := cloneUser(u)
	c.Email = strings.ToLower(c.Email)
	s.users[u.ID] = c
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	c := cloneUser(u)
	c.Email = existing.Email
	c.PasswordHash = existing.PasswordHash
	s.users[u.ID] = c
	return nil
}

// --- Fields ---

func (s *MemoryStore) CreateField(_ context.Context, f *models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[f.ID]; ok {
		return ErrDuplicateKey
	}
	s.fields[f.ID] = clone(f)
	return nil
}

func (s *MemoryStore) GetField(_ context.Context, id uuid.UUID, userID uuid.UUID) (*models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[id]
	if !ok || f.UserID != userID {
		return nil, ErrNotFound
	}
	return clone(f), nil
}

func (s *MemoryStore) UpdateField(_ context.Context, f *models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.fields[f.ID]
	if !ok || existing.UserID != f.UserID {
		return ErrNotFound
	}
	f.UpdatedAt = time.Now().UTC()
	s.fields[f.ID] = clone(f)
	return nil
}

func (s *MemoryStore) DeleteField(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok || f.UserID != userID {
		return ErrNotFound
	}
	delete(s.fields, id)
	return nil
}

func (s *MemoryStore) ListFields(_ context.Context, userID uuid.UUID) ([]*models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Field{}
	for _, f := range s.fields {
		if f.UserID == userID {
			out = append(out, clone(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- Tasks ---

func (s *MemoryStore) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = clone(t)
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryStore) ListTasks(_ context.Context, userID uuid.UUID) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = clone(t)
	return nil
}

// --- Alerts ---

func (s *MemoryStore) CreateAlert(_ context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = clone(a)
	return nil
}

func (s *MemoryStore) ListAlerts(_ context.Context, userID uuid.UUID) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Alert{}
	for _, a := range s.alerts {
		if a.UserID == userID {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkAlertRead(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	a.Read = true
	return nil
}

// --- Plans ---

func (s *MemoryStore) CreatePlan(_ context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; ok {
		return ErrDuplicateKey
	}
	p.RecomputeProgress()
	s.plans[p.ID] = clone(p)
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id uuid.UUID, userID uuid.UUID) (*models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) ListPlans(_ context.Context, userID uuid.UUID) ([]*models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Plan{}
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SavePlan(_ context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.plans[p.ID]
	if !ok || existing.UserID != p.UserID {
		return ErrNotFound
	}
	p.RecomputeProgress()
	p.UpdatedAt = time.Now().UTC()
	s.plans[p.ID] = clone(p)
	return nil
}

// --- Predictions ---

func (s *MemoryStore) CreatePrediction(_ context.Context, p *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.predictions[p.ID]; ok {
		return ErrDuplicateKey
	}
	s.predictions[p.ID] = clone(p)
	return nil
}

func (s *MemoryStore) GetPrediction(_ context.Context, id uuid.UUID, userID uuid.UUID) (*models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.predictions[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) ListPredictions(_ context.Context, userID uuid.UUID) ([]*models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Prediction{}
	for _, p := range s.predictions {
		if p.UserID == userID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SavePrediction(_ context.Context, p *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.predictions[p.ID]
	if !ok || existing.UserID != p.UserID || existing.Terminal() {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.predictions[p.ID] = clone(p)
	return nil
}

var _ Store = (*MemoryStore)(nil)
