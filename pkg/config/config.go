package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Pipeline    PipelineConfig
	Environment EnvironmentConfig
	Hosting     HostingConfig
	Worker      WorkerConfig
	Auth        AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// PipelineConfig holds pipeline execution settings
type PipelineConfig struct {
	RepoURL      string
	WorkflowPath string
	WorkspaceDir string
	StageTimeout time.Duration
}

// EnvironmentConfig selects the ephemeral execution environment provider
type EnvironmentConfig struct {
	Provider string // "docker" or "local"
}

// HostingConfig holds zip-push hosting platform configuration
type HostingConfig struct {
	PublishUser     string
	PublishPassword string
	SCMSuffix       string
	SiteSuffix      string
	PollInterval    time.Duration
	DeployTimeout   time.Duration
}

// WorkerConfig holds pipeline worker configuration
type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret          string
	JWTExpirationHours int
	WebhookSecret      string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars only
	}

	viper.AutomaticEnv()

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout"),
			WriteTimeout: viper.GetDuration("server.write_timeout"),
			LogLevel:     viper.GetString("server.log_level"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetInt("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			DBName:          viper.GetString("database.dbname"),
			SSLMode:         viper.GetString("database.sslmode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			URL:      viper.GetString("redis.url"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Pipeline: PipelineConfig{
			RepoURL:      viper.GetString("pipeline.repo_url"),
			WorkflowPath: viper.GetString("pipeline.workflow_path"),
			WorkspaceDir: viper.GetString("pipeline.workspace_dir"),
			StageTimeout: viper.GetDuration("pipeline.stage_timeout"),
		},
		Environment: EnvironmentConfig{
			Provider: viper.GetString("environment.provider"),
		},
		Hosting: HostingConfig{
			PublishUser:     viper.GetString("hosting.publish_user"),
			PublishPassword: viper.GetString("hosting.publish_password"),
			SCMSuffix:       viper.GetString("hosting.scm_suffix"),
			SiteSuffix:      viper.GetString("hosting.site_suffix"),
			PollInterval:    viper.GetDuration("hosting.poll_interval"),
			DeployTimeout:   viper.GetDuration("hosting.deploy_timeout"),
		},
		Worker: WorkerConfig{
			Concurrency:  viper.GetInt("worker.concurrency"),
			PollInterval: viper.GetDuration("worker.poll_interval"),
		},
		Auth: AuthConfig{
			JWTSecret:          viper.GetString("auth.jwt_secret"),
			JWTExpirationHours: viper.GetInt("auth.jwt_expiration_hours"),
			WebhookSecret:      viper.GetString("auth.webhook_secret"),
		},
	}

	// The publish credential is injected at runtime, never committed to a
	// config file.
	if cred := os.Getenv("PUBLISH_PASSWORD"); cred != "" {
		config.Hosting.PublishPassword = cred
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.log_level", "info")

	// Database defaults
	viper.SetDefault("database.host", "127.0.0.1")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "slotship")
	viper.SetDefault("database.password", "slotship_dev_password")
	viper.SetDefault("database.dbname", "slotship")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Redis defaults
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Pipeline defaults
	viper.SetDefault("pipeline.repo_url", "")
	viper.SetDefault("pipeline.workflow_path", "deploy.yml")
	viper.SetDefault("pipeline.workspace_dir", "")
	viper.SetDefault("pipeline.stage_timeout", 15*time.Minute)

	// Environment defaults
	viper.SetDefault("environment.provider", "docker")

	// Hosting defaults
	viper.SetDefault("hosting.publish_user", "")
	viper.SetDefault("hosting.publish_password", "")
	viper.SetDefault("hosting.scm_suffix", "scm.azurewebsites.net")
	viper.SetDefault("hosting.site_suffix", "azurewebsites.net")
	viper.SetDefault("hosting.poll_interval", 3*time.Second)
	viper.SetDefault("hosting.deploy_timeout", 10*time.Minute)

	// Worker defaults
	viper.SetDefault("worker.concurrency", 1)
	viper.SetDefault("worker.poll_interval", 5*time.Second)

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.jwt_expiration_hours", 24)
	viper.SetDefault("auth.webhook_secret", "")
}

// GetDatabaseDSN returns the PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}
