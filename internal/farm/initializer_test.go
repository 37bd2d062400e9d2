package farm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/farmdesk/internal/advisor"
	"github.com/kiranshivaraju/farmdesk/internal/ai/mock"
	"github.com/kiranshivaraju/farmdesk/internal/jobs"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/weather"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

const analysisJSON = `{"summary": "Healthy field", "soilAssessment": "Good", "cropSuitability": "Suitable",
 "risks": ["drought"], "recommendations": [{"category": "water", "action": "Mulch", "priority": "high"}]}`

type fixedWeather struct{}

func (fixedWeather) Current(_ context.Context, _ models.Location) models.Weather {
	return weather.Mock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
}

// countingWeather counts lookups.
type countingWeather struct {
	calls atomic.Int32
}

func (c *countingWeather) Current(ctx context.Context, loc models.Location) models.Weather {
	c.calls.Add(1)
	return fixedWeather{}.Current(ctx, loc)
}

// recordingRegistry remembers every progress value passed to Advance.
type recordingRegistry struct {
	*jobs.MemoryRegistry
	mu       sync.Mutex
	progress []int
}

func (r *recordingRegistry) Advance(ctx context.Context, jobID string, progress int, step string) error {
	r.mu.Lock()
	r.progress = append(r.progress, progress)
	r.mu.Unlock()
	return r.MemoryRegistry.Advance(ctx, jobID, progress, step)
}

// failingAlertStore fails every CreateAlert call.
type failingAlertStore struct {
	*store.MemoryStore
}

func (s failingAlertStore) CreateAlert(_ context.Context, _ *models.Alert) error {
	return errors.New("alerts table unavailable")
}

type fixture struct {
	store *store.MemoryStore
	jobs  *recordingRegistry
	pool  *worker.Pool
	ini   *Initializer
	user  *models.User
}

func newFixture(t *testing.T, provider models.AIProvider) *fixture {
	t.Helper()
	return newFixtureWithStore(t, provider, nil)
}

func newFixtureWithStore(t *testing.T, provider models.AIProvider, wrap func(*store.MemoryStore) store.Store) *fixture {
	t.Helper()
	ms := store.NewMemoryStore()
	var s store.Store = ms
	if wrap != nil {
		s = wrap(ms)
	}

	user := &models.User{
		ID:                   uuid.New(),
		Email:                "farmer@example.com",
		Name:                 "Farmer",
		InitializationStatus: models.InitStatusPending,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
	require.NoError(t, ms.CreateUser(context.Background(), user))

	reg := &recordingRegistry{MemoryRegistry: jobs.NewMemoryRegistry(time.Minute)}
	pool := worker.NewPool(2)
	ini := NewInitializer(s, reg, advisor.New(provider, time.Second), fixedWeather{}, pool)
	return &fixture{store: ms, jobs: reg, pool: pool, ini: ini, user: user}
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	require.NoError(t, f.pool.Shutdown(context.Background()))
}

func threeFields() OnboardingInput {
	return OnboardingInput{
		Location:      models.Location{City: "Nakuru", Country: "Kenya"},
		FarmingMethod: "organic",
		Fields: []FieldInput{
			{Name: "North Plot", Area: 2, CropType: "maize", GrowthStage: models.StageFlowering, SoilHealth: models.SoilHealth{PH: "5.2"}, WaterAvailability: models.WaterLimited},
			{Name: "East Plot", Area: 1.5, CropType: "beans", GrowthStage: models.StageVegetative, SoilHealth: models.SoilHealth{PH: "6.5"}},
			{Name: "South Plot", Area: 3, GrowthStage: models.StageNotPlanted},
		},
	}
}

func TestStart_CompletesAndSeedsRecords(t *testing.T) {
	f := newFixture(t, mock.NewMockProvider(analysisJSON))
	ctx := context.Background()

	jobID, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jobID, "init_"+f.user.ID.String()+"_"))
	f.wait(t)

	job, err := f.jobs.Get(ctx, jobID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)

	u, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InitStatusCompleted, u.InitializationStatus)
	assert.NotNil(t, u.InitializedAt)
	assert.Equal(t, "Nakuru", u.Location.City)
	assert.Equal(t, "organic", u.FarmingMethod)

	fields, err := f.store.ListFields(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 3)

	tasks, err := f.store.ListTasks(ctx, f.user.ID)
	require.NoError(t, err)
	// flowering + irrigation, vegetative, not planted
	assert.Len(t, tasks, 4)
	for _, task := range tasks {
		assert.True(t, task.AIGenerated)
		assert.True(t, task.InitialSetup)
	}

	alerts, err := f.store.ListAlerts(ctx, f.user.ID)
	require.NoError(t, err)
	// three weather, one pest, one soil pH
	assert.Len(t, alerts, 5)

	preds, err := f.store.ListPredictions(ctx, f.user.ID)
	require.NoError(t, err)
	// the unplanted field is skipped
	require.Len(t, preds, 2)
	for _, p := range preds {
		assert.Equal(t, models.PredictionStatusCompleted, p.Status)
		assert.True(t, p.InitialSetup)
		require.NotNil(t, p.Prediction)
	}
}

func TestStart_ProgressIsMonotonic(t *testing.T) {
	f := newFixture(t, mock.NewMockProvider(analysisJSON))
	ctx := context.Background()

	jobID, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.NoError(t, err)
	f.wait(t)

	f.jobs.mu.Lock()
	progress := append([]int(nil), f.jobs.progress...)
	f.jobs.mu.Unlock()

	assert.Equal(t, []int{10, 20, 25, 45, 50, 70, 75, 90, 95}, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}

	job, err := f.jobs.Get(ctx, jobID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
}

func TestAnalyzeFields_IsolatesFailures(t *testing.T) {
	provider := &mock.MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "- Name: East Plot\n") {
				return "", errors.New("model overloaded")
			}
			return analysisJSON, nil
		},
	}
	f := newFixture(t, provider)
	in := threeFields()
	fields := make([]models.Field, len(in.Fields))
	for i, fi := range in.Fields {
		fields[i] = fi.toField(f.user.ID, time.Now().UTC())
	}

	analyses, w := f.ini.analyzeFields(context.Background(), *f.user, fields)

	require.Len(t, analyses, 3)
	assert.True(t, analyses[0].AIGenerated)
	assert.Equal(t, "Healthy field", analyses[0].Summary)
	assert.False(t, analyses[1].AIGenerated)
	assert.Equal(t, fields[1].ID, analyses[1].FieldID)
	assert.NotEmpty(t, analyses[1].Summary)
	assert.True(t, analyses[2].AIGenerated)
	assert.True(t, w.Mock)
}

func TestStart_CompletesWhenOneFieldAnalysisFails(t *testing.T) {
	provider := &mock.MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "- Name: East Plot\n") {
				return "", errors.New("model overloaded")
			}
			return analysisJSON, nil
		},
	}
	f := newFixture(t, provider)
	ctx := context.Background()

	jobID, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.NoError(t, err)
	f.wait(t)

	job, err := f.jobs.Get(ctx, jobID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	fields, err := f.store.ListFields(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	byName := map[string]*models.Field{}
	for _, fd := range fields {
		byName[fd.Name] = fd
	}

	for _, name := range []string{"North Plot", "South Plot"} {
		a := byName[name].Analysis
		require.NotNil(t, a, name)
		assert.True(t, a.AIGenerated, name)
		assert.Equal(t, "Healthy field", a.Summary, name)
		assert.Equal(t, byName[name].ID, a.FieldID, name)
	}

	east := byName["East Plot"].Analysis
	require.NotNil(t, east)
	assert.False(t, east.AIGenerated)
	assert.NotEqual(t, "Healthy field", east.Summary)
	assert.NotEmpty(t, east.Summary)

	u, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, u.FarmAdvice)
	assert.True(t, u.FarmAdvice.AIGenerated)
	require.NotEmpty(t, u.FarmAdvice.Recommendations)
	assert.Equal(t, "Mulch", u.FarmAdvice.Recommendations[0].Action)
}

func TestAnalyzeFields_LooksUpWeatherOnce(t *testing.T) {
	f := newFixture(t, mock.NewMockProvider(analysisJSON))
	w := &countingWeather{}
	f.ini.weather = w

	in := threeFields()
	fields := make([]models.Field, len(in.Fields))
	for i, fi := range in.Fields {
		fields[i] = fi.toField(f.user.ID, time.Now().UTC())
	}

	analyses, _ := f.ini.analyzeFields(context.Background(), *f.user, fields)
	assert.Len(t, analyses, 3)
	assert.Equal(t, int32(1), w.calls.Load())
}

func TestStart_SchedulingFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.pool.Shutdown(ctx))

	_, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.ErrorIs(t, err, worker.ErrPoolClosed)

	u, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InitStatusPending, u.InitializationStatus)

	fields, err := f.store.ListFields(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestStart_WithoutProviderUsesTemplates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	jobID, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.NoError(t, err)
	f.wait(t)

	job, err := f.jobs.Get(ctx, jobID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	preds, err := f.store.ListPredictions(ctx, f.user.ID)
	require.NoError(t, err)
	for _, p := range preds {
		assert.False(t, p.AIGenerated)
		assert.Empty(t, p.RawResponse)
	}
}

func TestStart_StageFailureRunsBasicSetup(t *testing.T) {
	f := newFixtureWithStore(t, mock.NewMockProvider(analysisJSON), func(ms *store.MemoryStore) store.Store {
		return failingAlertStore{MemoryStore: ms}
	})
	ctx := context.Background()

	jobID, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.NoError(t, err)
	f.wait(t)

	job, err := f.jobs.Get(ctx, jobID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "alerts table unavailable")
	assert.Equal(t, 75, job.Progress)

	u, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InitStatusFailed, u.InitializationStatus)

	tasks, err := f.store.ListTasks(ctx, f.user.ID)
	require.NoError(t, err)
	basic := 0
	for _, task := range tasks {
		if !task.AIGenerated {
			basic++
		}
	}
	// one templated task per field on top of the stage tasks
	assert.Equal(t, 3, basic)
}

func TestStart_RecoversFromPanics(t *testing.T) {
	provider := &mock.MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, prompt string) (string, error) {
			if strings.HasPrefix(prompt, "Give farm-wide advice") {
				panic("provider bug")
			}
			return analysisJSON, nil
		},
	}
	f := newFixture(t, provider)
	ctx := context.Background()

	jobID, err := f.ini.Start(ctx, f.user.ID, threeFields())
	require.NoError(t, err)
	f.wait(t)

	job, err := f.jobs.Get(ctx, jobID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "provider bug")
}

func TestStart_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   OnboardingInput
	}{
		{"no fields", OnboardingInput{}},
		{"unnamed field", OnboardingInput{Fields: []FieldInput{{Area: 1}}}},
		{"unknown growth stage", OnboardingInput{Fields: []FieldInput{{Name: "A", GrowthStage: "sprouting"}}}},
		{"unknown water availability", OnboardingInput{Fields: []FieldInput{{Name: "A", WaterAvailability: "plenty"}}}},
		{"negative area", OnboardingInput{Fields: []FieldInput{{Name: "A", Area: -1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ini.Start(ctx, f.user.ID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	fields, err := f.store.ListFields(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestStart_UnknownUser(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.ini.Start(context.Background(), uuid.New(), threeFields())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
