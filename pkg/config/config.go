package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음 (전략 파라미터는 internal/strategyconfig)
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: 비어 있으면 Postgres 기능 비활성)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Storage
	Storage StorageConfig

	// Remote vendor export (data fetch)
	Source SourceConfig

	// Sweep worker pool
	SweepWorkers int

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration // 유니버스 스냅샷 캐시 TTL
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// StorageConfig holds on-disk locations
type StorageConfig struct {
	DataDir    string // parquet 캐시 루트 ({data_dir}/cache/prices/...)
	ResultsDir string // 실행 결과 디렉터리 ({results_dir}/{run_id}/...)
}

// LoadFile loads envFile (if given) before reading the environment.
// Variables already set in the process win over the file.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return Load()
}

// SourceConfig holds the remote vendor export location
type SourceConfig struct {
	BaseURL       string        // {base_url}/{universe}/prices.parquet, membership.parquet
	Token         string        // optional bearer token
	RatePerSecond float64       // 0 = unthrottled
	Timeout       time.Duration // per request
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_SNAPSHOT_TTL", "24h"),
		},

		// Storage
		Storage: StorageConfig{
			DataDir:    getEnv("DATA_DIR", "data"),
			ResultsDir: getEnv("RESULTS_DIR", "results"),
		},

		// Remote source
		Source: SourceConfig{
			BaseURL:       getEnv("DATA_SOURCE_URL", ""),
			Token:         getEnv("DATA_SOURCE_TOKEN", ""),
			RatePerSecond: getEnvAsFloat("DATA_SOURCE_RPS", 2),
			Timeout:       getEnvAsDuration("DATA_SOURCE_TIMEOUT", "60s"),
		},

		SweepWorkers: getEnvAsInt("SWEEP_WORKERS", 4),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate re-checks the configuration after overrides (CLI flags)
func (c *Config) Validate() error {
	return c.validate()
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.SweepWorkers < 1 {
		return fmt.Errorf("SWEEP_WORKERS must be >= 1, got %d", c.SweepWorkers)
	}

	if c.Source.RatePerSecond < 0 {
		return fmt.Errorf("DATA_SOURCE_RPS must be >= 0, got %v", c.Source.RatePerSecond)
	}

	if c.Storage.DataDir == "" || c.Storage.ResultsDir == "" {
		return fmt.Errorf("DATA_DIR and RESULTS_DIR must not be empty")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
