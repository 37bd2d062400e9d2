package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Farmer's Desk server.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	AI       AIConfig
	Weather  WeatherConfig
	JWT      JWTConfig
	Plans    PlansConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RateLimitPerMin   int
	WorkerConcurrency int
}

type StoreConfig struct {
	Backend            string
	FirestoreProjectID string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type JobsConfig struct {
	Registry    string
	ExpireAfter time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Gemini           GeminiConfig
	Vertex           VertexConfig
	Ollama           OllamaConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type VertexConfig struct {
	ProjectID string
	Region    string
	Model     string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type WeatherConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// JWTConfig configures session token signing.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type PlansConfig struct {
	GenerationTimeout time.Duration
}

var validBackends = map[string]bool{
	"postgres":  true,
	"firestore": true,
	"memory":    true,
}

var validRegistries = map[string]bool{
	"memory": true,
	"redis":  true,
}

var validProviders = map[string]bool{
	"gemini":   true,
	"vertex":   true,
	"ollama":   true,
	"template": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:              envInt("FARMDESK_PORT", 8080),
			Env:               envString("FARMDESK_ENV", "development"),
			RateLimitPerMin:   envInt("RATE_LIMIT_PER_MINUTE", 120),
			WorkerConcurrency: envInt("WORKER_CONCURRENCY", 8),
		},
		Store: StoreConfig{
			Backend:            envString("STORE_BACKEND", "postgres"),
			FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jobs: JobsConfig{
			Registry:    envString("JOB_REGISTRY", "memory"),
			ExpireAfter: envDuration("JOB_EXPIRE_AFTER", 5*time.Minute),
		},
		AI: AIConfig{
			Provider:         envString("AI_PROVIDER", "template"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-1.5-flash"),
			},
			Vertex: VertexConfig{
				ProjectID: os.Getenv("VERTEX_PROJECT_ID"),
				Region:    envString("VERTEX_REGION", "us-central1"),
				Model:     envString("VERTEX_MODEL", "gemini-1.5-flash"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
		},
		Weather: WeatherConfig{
			BaseURL: envString("WEATHER_BASE_URL", "https://api.openweathermap.org"),
			APIKey:  os.Getenv("WEATHER_API_KEY"),
			Timeout: envDuration("WEATHER_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			ExpirationHours: envInt("JWT_EXPIRATION_HOURS", 24*7),
		},
		Plans: PlansConfig{
			GenerationTimeout: envDuration("PLAN_GENERATION_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("STORE_BACKEND must be one of postgres, firestore, memory; got %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
	}
	if c.Store.Backend == "firestore" && c.Store.FirestoreProjectID == "" {
		return fmt.Errorf("FIRESTORE_PROJECT_ID is required when STORE_BACKEND is firestore")
	}

	if !validRegistries[c.Jobs.Registry] {
		return fmt.Errorf("JOB_REGISTRY must be one of memory, redis; got %q", c.Jobs.Registry)
	}
	if c.Jobs.ExpireAfter <= 0 {
		return fmt.Errorf("JOB_EXPIRE_AFTER must be positive")
	}

	if c.Redis.URL == "" && c.Jobs.Registry == "redis" {
		return fmt.Errorf("REDIS_URL is required when JOB_REGISTRY is redis")
	}
	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of gemini, vertex, ollama, template; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}
	if c.AI.Provider == "vertex" && c.AI.Vertex.ProjectID == "" {
		return fmt.Errorf("VERTEX_PROJECT_ID is required when AI_PROVIDER is vertex")
	}

	if !strings.HasPrefix(c.Weather.BaseURL, "http://") && !strings.HasPrefix(c.Weather.BaseURL, "https://") {
		return fmt.Errorf("WEATHER_BASE_URL must start with http:// or https://, got %q", c.Weather.BaseURL)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 && c.Server.Env == "production" {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	if c.Plans.GenerationTimeout <= 0 {
		return fmt.Errorf("PLAN_GENERATION_TIMEOUT must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
