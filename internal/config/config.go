package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/rules"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when ISOLATOR_CONFIG_FILE is not set
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for the application. It is loaded once and
// passed explicitly to every component.
type Config struct {
	// Common
	Environment string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Stages
	Data     DataConfig
	Universe UniverseConfig
	Download DownloadConfig
	Clean    CleanConfig
	Isolator IsolatorConfig
	Report   ReportConfig
	Metrics  MetricsConfig
	API      APIConfig
}

// DatabaseConfig holds PostgreSQL/TimescaleDB configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// DataConfig holds the on-disk layout and series backend selection
type DataConfig struct {
	RawDir        string `validate:"required"`
	CleanDir      string `validate:"required"`
	StockListPath string `validate:"required"`
	StoreType     string `validate:"oneof=csv postgres"` // "csv" or "postgres"
	CacheEnabled  bool
	CacheTTL      time.Duration
}

// PricesDir returns the directory holding raw price history files
func (d DataConfig) PricesDir() string { return filepath.Join(d.RawDir, "prices") }

// SplitsDir returns the directory holding raw split event files
func (d DataConfig) SplitsDir() string { return filepath.Join(d.RawDir, "splits") }

// SharesDir returns the directory holding share count files
func (d DataConfig) SharesDir() string { return filepath.Join(d.RawDir, "shares") }

// UniverseConfig selects instruments from the stock list
type UniverseConfig struct {
	Countries []string // empty keeps every row
}

// DownloadConfig holds acquisition configuration
type DownloadConfig struct {
	WorkerCount       int     `validate:"gte=1"`
	RequestsPerSecond float64 `validate:"gt=0"`
	Burst             int     `validate:"gte=1"`
	MaxRetries        int     `validate:"gte=0"`
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	Timeout           time.Duration `validate:"gt=0"`
	BaseURL           string        `validate:"required,url"`
	StatsURL          string        `validate:"required,url"`
	PeriodStart       int64
	PeriodEnd         int64
	Headers           map[string]string
}

// CleanConfig holds derivation stage configuration
type CleanConfig struct {
	WorkerCount int `validate:"gte=1"`
}

// IsolatorConfig holds the candidate filtering and ranking configuration
type IsolatorConfig struct {
	Window      models.Window
	Conditions  []rules.RuleSpec `validate:"dive"`
	Rules       []models.ThresholdRule
	KeepBest    int `validate:"gte=0"`
	KeepWorst   int `validate:"gte=0"`
	WorkerCount int `validate:"gte=1"`
	RankWorkers int `validate:"gte=0"` // 0 uses GOMAXPROCS
}

// ReportConfig holds report persistence configuration
type ReportConfig struct {
	Dir      string   `validate:"required"`
	Formats  []string `validate:"dive,oneof=csv xlsx"`
	Console  bool
	S3Bucket string
	S3Prefix string
	S3Region string
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	PushgatewayURL string `validate:"omitempty,url"`
	JobName        string
}

// APIConfig holds report API configuration
type APIConfig struct {
	Port            int `validate:"gt=0"`
	RefreshSchedule string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// fileConfig mirrors the structured configuration file
type fileConfig struct {
	Countries      []string          `yaml:"countries"`
	RequestHeaders map[string]string `yaml:"request_headers"`
	PeriodStart    *int64            `yaml:"period_start"`
	PeriodEnd      *int64            `yaml:"period_end"`
	StockIsolator  struct {
		Period struct {
			Start fileDate `yaml:"start"`
			End   fileDate `yaml:"end"`
		} `yaml:"period"`
		Conditions []rules.RuleSpec `yaml:"conditions"`
		Keep       struct {
			Best  *int `yaml:"best"`
			Worst *int `yaml:"worst"`
		} `yaml:"keep"`
	} `yaml:"stock_isolator"`
}

type fileDate struct {
	Year  int `yaml:"year"`
	Month int `yaml:"month"`
	Day   int `yaml:"day"`
}

func (d fileDate) time() time.Time {
	if d.Year == 0 {
		return time.Time{}
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Load loads configuration from environment variables and the structured
// configuration file. It automatically loads a .env file if one exists.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	path := getEnv("ISOLATOR_CONFIG_FILE", "")
	required := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	fc, err := readFileConfig(path, required)
	if err != nil {
		return nil, err
	}

	return build(fc)
}

// LoadFile loads configuration using an explicit configuration file
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	fc, err := readFileConfig(path, true)
	if err != nil {
		return nil, err
	}
	return build(fc)
}

func readFileConfig(path string, required bool) (*fileConfig, error) {
	fc := &fileConfig{}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return fc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func build(fc *fileConfig) (*Config, error) {
	dataDir := getEnv("DATA_DIR", "data")

	keepBest := 5
	if fc.StockIsolator.Keep.Best != nil {
		keepBest = *fc.StockIsolator.Keep.Best
	}
	keepWorst := 5
	if fc.StockIsolator.Keep.Worst != nil {
		keepWorst = *fc.StockIsolator.Keep.Worst
	}
	var periodStart, periodEnd int64
	if fc.PeriodStart != nil {
		periodStart = *fc.PeriodStart
	}
	if fc.PeriodEnd != nil {
		periodEnd = *fc.PeriodEnd
	} else {
		periodEnd = time.Now().Unix()
	}

	countries := fc.Countries
	if env := getEnvAsStringSlice("UNIVERSE_COUNTRIES", nil); env != nil {
		countries = env
	}

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
	for k, v := range fc.RequestHeaders {
		headers[k] = v
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "stock_isolator"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Data: DataConfig{
			RawDir:        getEnv("DATA_RAW_DIR", filepath.Join(dataDir, "raw_data")),
			CleanDir:      getEnv("DATA_CLEAN_DIR", filepath.Join(dataDir, "clean_data")),
			StockListPath: getEnv("DATA_STOCK_LIST", filepath.Join(dataDir, "raw_data", "stock_list", "stock_list.csv")),
			StoreType:     getEnv("DATA_STORE_TYPE", "csv"),
			CacheEnabled:  getEnvAsBool("DATA_CACHE_ENABLED", false),
			CacheTTL:      getEnvAsDuration("DATA_CACHE_TTL", 1*time.Hour),
		},
		Universe: UniverseConfig{
			Countries: countries,
		},
		Download: DownloadConfig{
			WorkerCount:       getEnvAsInt("DOWNLOAD_WORKER_COUNT", 1),
			RequestsPerSecond: getEnvAsFloat("DOWNLOAD_REQUESTS_PER_SECOND", 2),
			Burst:             getEnvAsInt("DOWNLOAD_BURST", 1),
			MaxRetries:        getEnvAsInt("DOWNLOAD_MAX_RETRIES", 5),
			RetryDelay:        getEnvAsDuration("DOWNLOAD_RETRY_DELAY", 3*time.Second),
			MaxRetryDelay:     getEnvAsDuration("DOWNLOAD_MAX_RETRY_DELAY", 1*time.Minute),
			Timeout:           getEnvAsDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
			BaseURL:           getEnv("DOWNLOAD_BASE_URL", "https://query1.finance.yahoo.com/v7/finance/download"),
			StatsURL:          getEnv("DOWNLOAD_STATS_URL", "https://finance.yahoo.com/quote"),
			PeriodStart:       getEnvAsInt64("DOWNLOAD_PERIOD_START", periodStart),
			PeriodEnd:         getEnvAsInt64("DOWNLOAD_PERIOD_END", periodEnd),
			Headers:           headers,
		},
		Clean: CleanConfig{
			WorkerCount: getEnvAsInt("CLEAN_WORKER_COUNT", 24),
		},
		Isolator: IsolatorConfig{
			Window: models.Window{
				Start: getEnvAsDate("ISOLATOR_START", fc.StockIsolator.Period.Start.time()),
				End:   getEnvAsDate("ISOLATOR_END", fc.StockIsolator.Period.End.time()),
			},
			Conditions:  fc.StockIsolator.Conditions,
			KeepBest:    getEnvAsInt("ISOLATOR_KEEP_BEST", keepBest),
			KeepWorst:   getEnvAsInt("ISOLATOR_KEEP_WORST", keepWorst),
			WorkerCount: getEnvAsInt("ISOLATOR_WORKER_COUNT", 8),
			RankWorkers: getEnvAsInt("ISOLATOR_RANK_WORKERS", 0),
		},
		Report: ReportConfig{
			Dir:      getEnv("REPORT_DIR", "logs"),
			Formats:  getEnvAsStringSlice("REPORT_FORMATS", []string{"csv"}),
			Console:  getEnvAsBool("REPORT_CONSOLE", true),
			S3Bucket: getEnv("REPORT_S3_BUCKET", ""),
			S3Prefix: getEnv("REPORT_S3_PREFIX", "stock-isolator/"),
			S3Region: getEnv("REPORT_S3_REGION", ""),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			JobName:        getEnv("METRICS_JOB_NAME", "stock_isolator"),
		},
		API: APIConfig{
			Port:            getEnvAsInt("API_PORT", 8090),
			RefreshSchedule: getEnv("SERVE_REFRESH_SCHEDULE", "0 30 22 * * 1-5"),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration and compiles threshold rules. Every
// failure is a models.ConfigurationError.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return models.NewConfigurationError(err, "%s failed %q check", fe.Namespace(), fe.Tag())
		}
		return models.NewConfigurationError(err, "invalid configuration")
	}

	if err := c.Isolator.Window.Validate(); err != nil {
		return models.NewConfigurationError(err, "stock_isolator.period")
	}

	parsed, err := rules.ParseRules(c.Isolator.Conditions)
	if err != nil {
		return models.NewConfigurationError(err, "stock_isolator.conditions")
	}
	c.Isolator.Rules = parsed

	if c.Data.StoreType == "postgres" && c.Database.Host == "" {
		return models.NewConfigurationError(nil, "DB_HOST is required when DATA_STORE_TYPE=postgres")
	}
	if c.Data.CacheEnabled && c.Redis.Host == "" {
		return models.NewConfigurationError(nil, "REDIS_HOST is required when DATA_CACHE_ENABLED=true")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsDate(key string, defaultValue time.Time) time.Time {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return defaultValue
	}
	return date
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
