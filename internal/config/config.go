package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
)

type Config struct {
	Server ServerConfig
	Model  ModelConfig
	Store  StoreConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	AllowedOrigin   string
	// MaxUploadBytes is the ceiling for the uploaded image file itself.
	MaxUploadBytes int64
}

type ModelConfig struct {
	URL             string
	InputName       string
	OutputName      string
	ImageSize       int
	Layout          string
	Threshold       float64
	MaxPixels       int64
	LibraryPath     string
	DownloadTimeout time.Duration
}

type StoreConfig struct {
	Driver          string
	Collection      string
	ProjectID       string
	CredentialsFile string
	DatabaseURL     string
}

// fileConfig mirrors configs/default.yaml.
type fileConfig struct {
	Server struct {
		Port            *int   `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		LogLevel        string `yaml:"log_level"`
		AllowedOrigin   string `yaml:"allowed_origin"`
		MaxUploadBytes  *int64 `yaml:"max_upload_bytes"`
	} `yaml:"server"`
	Model struct {
		URL             string   `yaml:"url"`
		InputName       string   `yaml:"input_name"`
		OutputName      string   `yaml:"output_name"`
		ImageSize       *int     `yaml:"image_size"`
		Layout          string   `yaml:"layout"`
		Threshold       *float64 `yaml:"threshold"`
		MaxPixels       *int64   `yaml:"max_pixels"`
		LibraryPath     string   `yaml:"library_path"`
		DownloadTimeout string   `yaml:"download_timeout"`
	} `yaml:"model"`
	Store struct {
		Driver          string `yaml:"driver"`
		Collection      string `yaml:"collection"`
		ProjectID       string `yaml:"project_id"`
		CredentialsFile string `yaml:"credentials_file"`
		DatabaseURL     string `yaml:"database_url"`
	} `yaml:"store"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LogLevel:        "info",
			AllowedOrigin:   "*",
			MaxUploadBytes:  1000000,
		},
		Model: ModelConfig{
			URL:             "https://storage.googleapis.com/mlgc-models/cancer/v1/model.onnx",
			InputName:       "input",
			OutputName:      "output",
			ImageSize:       224,
			Layout:          "nhwc",
			Threshold:       0.58,
			MaxPixels:       40_000_000,
			DownloadTimeout: 2 * time.Minute,
		},
		Store: StoreConfig{
			Driver:     DriverFirestore,
			Collection: "predictions",
		},
	}
}

// Load resolves configuration as defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.applyFile(raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setValue(&c.Server.Port, f.Server.Port)
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_timeout", f.Server.ReadTimeout, &c.Server.ReadTimeout},
		{"server.write_timeout", f.Server.WriteTimeout, &c.Server.WriteTimeout},
		{"server.idle_timeout", f.Server.IdleTimeout, &c.Server.IdleTimeout},
		{"server.shutdown_timeout", f.Server.ShutdownTimeout, &c.Server.ShutdownTimeout},
		{"model.download_timeout", f.Model.DownloadTimeout, &c.Model.DownloadTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	setString(&c.Server.LogLevel, f.Server.LogLevel)
	setString(&c.Server.AllowedOrigin, f.Server.AllowedOrigin)
	setValue(&c.Server.MaxUploadBytes, f.Server.MaxUploadBytes)

	setString(&c.Model.URL, f.Model.URL)
	setString(&c.Model.InputName, f.Model.InputName)
	setString(&c.Model.OutputName, f.Model.OutputName)
	setString(&c.Model.Layout, f.Model.Layout)
	setString(&c.Model.LibraryPath, f.Model.LibraryPath)
	setValue(&c.Model.ImageSize, f.Model.ImageSize)
	setValue(&c.Model.Threshold, f.Model.Threshold)
	setValue(&c.Model.MaxPixels, f.Model.MaxPixels)

	setString(&c.Store.Driver, f.Store.Driver)
	setString(&c.Store.Collection, f.Store.Collection)
	setString(&c.Store.ProjectID, f.Store.ProjectID)
	setString(&c.Store.CredentialsFile, f.Store.CredentialsFile)
	setString(&c.Store.DatabaseURL, f.Store.DatabaseURL)
	return nil
}

func (c *Config) applyEnv() error {
	port, err := getIntEnv("PORT", c.Server.Port)
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port

	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.AllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", c.Server.AllowedOrigin)

	c.Model.URL = getEnv("MODEL_URL", c.Model.URL)
	c.Model.LibraryPath = getEnv("ONNXRUNTIME_LIB", c.Model.LibraryPath)
	threshold, err := getFloatEnv("MODEL_THRESHOLD", c.Model.Threshold)
	if err != nil {
		return fmt.Errorf("invalid MODEL_THRESHOLD: %w", err)
	}
	c.Model.Threshold = threshold

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.ProjectID = getEnv("FIRESTORE_PROJECT_ID", c.Store.ProjectID)
	c.Store.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Store.CredentialsFile)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	return nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverFirestore, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Model.Layout {
	case "nhwc", "nchw":
	default:
		return fmt.Errorf("unknown model layout %q", c.Model.Layout)
	}
	if c.Model.Threshold < 0 || c.Model.Threshold > 1 {
		return fmt.Errorf("model threshold %v outside [0,1]", c.Model.Threshold)
	}
	if c.Model.ImageSize <= 0 {
		return fmt.Errorf("model image size must be positive, got %d", c.Model.ImageSize)
	}
	if c.Model.MaxPixels <= 0 {
		return fmt.Errorf("model max pixels must be positive, got %d", c.Model.MaxPixels)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// setValue applies a numeric override only when the key was present, so an
// explicit zero still wins over the default.
func setValue[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
