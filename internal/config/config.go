package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Storage   StorageConfig   `json:"storage"`
	GCS       GCSConfig       `json:"gcs"`
	Gotenberg GotenbergConfig `json:"gotenberg"`
	Fill      FillConfig      `json:"fill"`
	Editor    EditorConfig    `json:"editor"`
}

type ServerConfig struct {
	Port         string   `json:"port"`
	Environment  string   `json:"environment"`
	BaseURL      string   `json:"base_url"`
	AllowOrigins []string `json:"allow_origins"`
	LogLevel     string   `json:"log_level"`
}

// Debug reports whether per-field resolution misses should be logged.
func (s ServerConfig) Debug() bool {
	return strings.EqualFold(s.LogLevel, "debug")
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
}

type StorageConfig struct {
	Backend       string        `json:"backend"`
	LocalRoot     string        `json:"local_root"`
	ArchiveMaxAge time.Duration `json:"archive_max_age"`
}

type GCSConfig struct {
	BucketName      string `json:"bucket_name"`
	ProjectID       string `json:"project_id"`
	CredentialsPath string `json:"credentials_path"`
}

type GotenbergConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

type FillConfig struct {
	DateFormat      string  `json:"date_format"`
	DefaultFontSize float64 `json:"default_font_size"`
	MinFontSize     float64 `json:"min_font_size"`
	BundleWorkers   int     `json:"bundle_workers"`
}

type EditorConfig struct {
	SessionTTL time.Duration `json:"session_ttl"`
}

func (d *DatabaseConfig) DSN() string {
	// Cloud SQL Unix socket support
	if len(d.Host) > 0 && d.Host[0] == '/' {
		return fmt.Sprintf("%s:%s@unix(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.DBName)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Failed to load .env file: %v, using system environment variables\n", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			BaseURL:      getEnv("BASE_URL", ""),
			AllowOrigins: parseAllowOrigins(),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "pdf_mapper"),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			LocalRoot:     getEnv("STORAGE_LOCAL_ROOT", "data"),
			ArchiveMaxAge: getDuration("ARCHIVE_MAX_AGE", 24*time.Hour),
		},
		GCS: GCSConfig{
			BucketName:      getEnv("GCS_BUCKET_NAME", ""),
			ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT", ""),
			CredentialsPath: getEnv("GCS_CREDENTIALS_PATH", ""),
		},
		Gotenberg: GotenbergConfig{
			URL:     getEnv("GOTENBERG_URL", "http://localhost:3000"),
			Timeout: getDuration("GOTENBERG_TIMEOUT", 30*time.Second),
		},
		Fill: FillConfig{
			DateFormat:      getEnv("FILL_DATE_FORMAT", "02/01/2006"),
			DefaultFontSize: getFloat("FILL_DEFAULT_FONT_SIZE", 10),
			MinFontSize:     getFloat("FILL_MIN_FONT_SIZE", 6),
			BundleWorkers:   getInt("BUNDLE_WORKERS", 4),
		},
		Editor: EditorConfig{
			SessionTTL: getDuration("EDITOR_SESSION_TTL", 30*time.Minute),
		},
	}

	switch config.Storage.Backend {
	case "local":
	case "gcs":
		if config.GCS.BucketName == "" {
			return nil, fmt.Errorf("GCS_BUCKET_NAME is required when STORAGE_BACKEND=gcs")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", config.Storage.Backend)
	}
	if config.Fill.MinFontSize > config.Fill.DefaultFontSize {
		fmt.Printf("FILL_MIN_FONT_SIZE %.1f exceeds FILL_DEFAULT_FONT_SIZE %.1f, using %.1f\n",
			config.Fill.MinFontSize, config.Fill.DefaultFontSize, config.Fill.DefaultFontSize)
		config.Fill.MinFontSize = config.Fill.DefaultFontSize
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		fmt.Printf("Invalid %s %q, using %s\n", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		fmt.Printf("Invalid %s %q, using %g\n", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		fmt.Printf("Invalid %s %q, using %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func parseAllowOrigins() []string {
	if origins := os.Getenv("ALLOW_ORIGINS"); origins != "" {
		var allowOrigins []string
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowOrigins = append(allowOrigins, trimmed)
			}
		}
		return allowOrigins
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:3001",
	}
}
