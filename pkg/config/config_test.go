package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test loading with defaults (no config file)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}

	// Verify defaults
	if cfg.Server.Port != "3000" {
		t.Errorf("Expected default port 3000, got %s", cfg.Server.Port)
	}

	if cfg.Pipeline.WorkflowPath != "deploy.yml" {
		t.Errorf("Expected default workflow path deploy.yml, got %s", cfg.Pipeline.WorkflowPath)
	}

	if cfg.Environment.Provider != "docker" {
		t.Errorf("Expected default environment provider docker, got %s", cfg.Environment.Provider)
	}

	if cfg.Worker.Concurrency != 1 {
		t.Errorf("Expected default worker concurrency 1, got %d", cfg.Worker.Concurrency)
	}
}

func TestLoadCredentialFromEnv(t *testing.T) {
	t.Setenv("PUBLISH_PASSWORD", "s3cret-publish")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Hosting.PublishPassword != "s3cret-publish" {
		t.Errorf("Expected publish credential from environment, got %q", cfg.Hosting.PublishPassword)
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		},
	}

	dsn := cfg.GetDatabaseDSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"

	if dsn != expected {
		t.Errorf("Expected DSN %s, got %s", expected, dsn)
	}
}

func TestConfigStructure(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         "3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			LogLevel:     "info",
		},
		Hosting: HostingConfig{
			SCMSuffix:     "scm.azurewebsites.net",
			SiteSuffix:    "azurewebsites.net",
			PollInterval:  3 * time.Second,
			DeployTimeout: 10 * time.Minute,
		},
	}

	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Unexpected read timeout: %v", cfg.Server.ReadTimeout)
	}
	if cfg.Hosting.SiteSuffix != "azurewebsites.net" {
		t.Errorf("Unexpected site suffix: %v", cfg.Hosting.SiteSuffix)
	}
}
