package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	App        AppConfig
	Gemini     GeminiConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Firebase   FirebaseConfig
	ImageStore ImageStoreConfig
	Diagnosis  DiagnosisConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Port string
}

type AppConfig struct {
	ServiceName string
	Environment string
	LogLevel    string
	Version     string
}

type GeminiConfig struct {
	APIKey         string
	DiagnosisModel string
	ChatModel      string
	RPS            float64
	Burst          int
	// RequestTimeout bounds each HTTP call to Gemini. Zero means no limit.
	RequestTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Zero keeps the pgxpool default.
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
}

// ConnString returns DB_DSN when set, otherwise a URL built from the parts.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	HistoryBackend string
	SessionBackend string
}

type FirebaseConfig struct {
	Enabled         bool
	Required        bool
	CredentialsPath string
	ProjectID       string
}

type ImageStoreConfig struct {
	Enabled       bool
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type DiagnosisConfig struct {
	MinRecording          time.Duration
	MaxMediaBytes         int64
	SessionTTL            time.Duration
	SessionCacheSize      int
	ServiceCenterCacheTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		App: AppConfig{
			ServiceName: getEnv("SERVICE_NAME", "fixitnow-backend"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			DiagnosisModel: getEnv("GEMINI_DIAGNOSIS_MODEL", "gemini-2.5-flash"),
			ChatModel:      getEnv("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
			RPS:            getEnvAsFloat("GEMINI_RPS", 2),
			Burst:          getEnvAsInt("GEMINI_BURST", 4),
			RequestTimeout: getEnvAsDuration("GEMINI_REQUEST_TIMEOUT", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "fixitnow"),

			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 0),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 0),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 0),
		},
		Storage: StorageConfig{
			HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", BackendMemory)),
			SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", BackendMemory)),
		},
		Firebase: FirebaseConfig{
			Enabled:         getEnvAsBool("FIREBASE_ENABLED", false),
			Required:        getEnvAsBool("AUTH_REQUIRED", false),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		ImageStore: ImageStoreConfig{
			Enabled:       getEnvAsBool("MINIO_ENABLED", false),
			Endpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
			Region:        getEnv("MINIO_REGION", "us-east-1"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "fixitnow-images"),
			UseSSL:        getEnvAsBool("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", ""),
		},
		Diagnosis: DiagnosisConfig{
			MinRecording:          getEnvAsDuration("MIN_RECORDING", 3*time.Second),
			MaxMediaBytes:         int64(getEnvAsInt("MAX_MEDIA_MB", 20)) << 20,
			SessionTTL:            getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			SessionCacheSize:      getEnvAsInt("SESSION_CACHE_SIZE", 10000),
			ServiceCenterCacheTTL: getEnvAsDuration("SERVICE_CENTER_CACHE_TTL", 10*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	switch c.Storage.HistoryBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND must be memory, redis or postgres, got %q", c.Storage.HistoryBackend)
	}

	switch c.Storage.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", c.Storage.SessionBackend)
	}

	if c.Firebase.Required && !c.Firebase.Enabled {
		return fmt.Errorf("AUTH_REQUIRED needs FIREBASE_ENABLED")
	}
	if c.Firebase.Enabled && c.Firebase.CredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when FIREBASE_ENABLED is set")
	}

	if c.ImageStore.Enabled && (c.ImageStore.AccessKey == "" || c.ImageStore.SecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENABLED is set")
	}

	if c.Diagnosis.MinRecording <= 0 {
		return fmt.Errorf("MIN_RECORDING must be positive")
	}
	if c.Diagnosis.MaxMediaBytes <= 0 {
		return fmt.Errorf("MAX_MEDIA_MB must be positive")
	}

	return nil
}

// UsesRedis reports whether any store is backed by Redis.
func (c *Config) UsesRedis() bool {
	return c.Storage.HistoryBackend == BackendRedis || c.Storage.SessionBackend == BackendRedis
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
