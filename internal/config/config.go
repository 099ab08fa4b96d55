package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Server struct {
		Host        string `yaml:"host" envconfig:"SERVER_HOST"`
		Port        int    `yaml:"port" envconfig:"SERVER_PORT"`
		Env         string `yaml:"env" envconfig:"SERVER_ENV"`
		FrontendURL string `yaml:"frontend_url" envconfig:"FRONTEND_URL"`
		DebugErrors bool   `yaml:"debug_errors" envconfig:"DEBUG_ERRORS"`
	} `yaml:"server"`

	Database struct {
		Driver      string `yaml:"driver" envconfig:"DATABASE_DRIVER"` // postgres, sqlite
		DSN         string `yaml:"url" envconfig:"DATABASE_URL"`
		AutoMigrate bool   `yaml:"auto_migrate" envconfig:"DATABASE_AUTO_MIGRATE"`
	} `yaml:"database"`

	JWT struct {
		Secret    string        `yaml:"secret" envconfig:"JWT_SECRET"`
		AccessTTL time.Duration `yaml:"access_ttl" envconfig:"JWT_ACCESS_TTL"`
	} `yaml:"jwt"`

	Tokens struct {
		RefreshTTL      time.Duration `yaml:"refresh_ttl" envconfig:"REFRESH_TOKEN_TTL"`
		VerificationTTL time.Duration `yaml:"verification_ttl" envconfig:"VERIFICATION_TOKEN_TTL"`
		ResetTTL        time.Duration `yaml:"reset_ttl" envconfig:"RESET_TOKEN_TTL"`
	} `yaml:"tokens"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host" envconfig:"SMTP_HOST"`
		SMTPPort     int    `yaml:"smtp_port" envconfig:"SMTP_PORT"`
		SMTPUsername string `yaml:"smtp_user" envconfig:"SMTP_USER"`
		SMTPPassword string `yaml:"smtp_password" envconfig:"SMTP_PASSWORD"`
		FromEmail    string `yaml:"from_email" envconfig:"SMTP_FROM_EMAIL"`
		FromName     string `yaml:"from_name" envconfig:"SMTP_FROM_NAME"`
	} `yaml:"email"`

	Storage struct {
		Type       string `yaml:"type" envconfig:"STORAGE_TYPE"`           // local, s3, cloudflare_r2
		BasePath   string `yaml:"base_path" envconfig:"STORAGE_BASE_PATH"` // local only
		BaseURL    string `yaml:"base_url" envconfig:"STORAGE_BASE_URL"`
		Bucket     string `yaml:"bucket" envconfig:"STORAGE_BUCKET"`
		Region     string `yaml:"region" envconfig:"STORAGE_REGION"`
		AccessKey  string `yaml:"access_key" envconfig:"STORAGE_ACCESS_KEY"`
		SecretKey  string `yaml:"secret_key" envconfig:"STORAGE_SECRET_KEY"`
		Endpoint   string `yaml:"endpoint" envconfig:"STORAGE_ENDPOINT"`
		UseSSL     bool   `yaml:"use_ssl" envconfig:"STORAGE_USE_SSL"`
		PublicRead bool   `yaml:"public_read" envconfig:"STORAGE_PUBLIC_READ"`
	} `yaml:"storage"`

	Upload struct {
		MaxCSVSize        int64    `yaml:"max_csv_size" envconfig:"UPLOAD_MAX_CSV_SIZE"`
		MaxVideoSize      int64    `yaml:"max_video_size" envconfig:"UPLOAD_MAX_VIDEO_SIZE"`
		AllowedVideoTypes []string `yaml:"allowed_video_types" envconfig:"UPLOAD_ALLOWED_VIDEO_TYPES"`
	} `yaml:"upload"`

	Redis struct {
		Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
		Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	} `yaml:"redis"`

	Workers struct {
		TokenCleanupInterval time.Duration `yaml:"token_cleanup_interval" envconfig:"TOKEN_CLEANUP_INTERVAL"`
		LockTTL              time.Duration `yaml:"lock_ttl" envconfig:"WORKER_LOCK_TTL"`
	} `yaml:"workers"`

	Admin struct {
		FirstAdminEmail    string `yaml:"first_admin_email" envconfig:"FIRST_ADMIN_EMAIL"`
		FirstAdminPassword string `yaml:"first_admin_password" envconfig:"FIRST_ADMIN_PASSWORD"`
		FirstAdminPhone    string `yaml:"first_admin_phone" envconfig:"FIRST_ADMIN_PHONE"`
	} `yaml:"admin"`
}

var AppConfig *Config

// LoadConfig reads .env, then the YAML file at CONFIG_PATH, then applies
// environment overrides. Exits the process on a malformed source.
func LoadConfig() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	AppConfig = cfg
}

// Load builds a Config without touching the global. An empty path means config/config.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Skipping .env: %v", err)
	}

	if path == "" {
		path = "config/config.yaml"
	}

	cfg := &Config{}
	cfg.applyDefaults()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Config file %s not found, using defaults and environment", path)
			return nil
		}
		return fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.Env = EnvDevelopment
	c.Server.FrontendURL = "http://localhost:3000"

	c.Database.Driver = "postgres"

	c.JWT.AccessTTL = 24 * time.Hour
	c.Tokens.RefreshTTL = 7 * 24 * time.Hour
	c.Tokens.VerificationTTL = 24 * time.Hour
	c.Tokens.ResetTTL = time.Hour

	c.Email.SMTPPort = 587
	c.Email.FromEmail = "noreply@pds.com"
	c.Email.FromName = "PDS System"

	c.Storage.Type = "local"
	c.Storage.BasePath = "./uploads"
	c.Storage.BaseURL = "/api/v1/files"

	c.Upload.MaxCSVSize = 10 * 1024 * 1024
	c.Upload.MaxVideoSize = 100 * 1024 * 1024
	c.Upload.AllowedVideoTypes = []string{"video/mp4", "video/webm", "video/ogg", "video/quicktime"}

	c.Workers.TokenCleanupInterval = 24 * time.Hour
	c.Workers.LockTTL = 10 * time.Minute

	c.Admin.FirstAdminPhone = "+263000000000"
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.IsProduction() && strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, EnvProduction)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
