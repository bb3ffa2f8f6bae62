//go:build e2e

package e2e

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alvesdmateus/slotship/internal/queue"
	"github.com/alvesdmateus/slotship/internal/state"
)

// E2EConfig holds configuration for end-to-end tests
type E2EConfig struct {
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RunTimeout   time.Duration
	PollInterval time.Duration
}

// LoadE2EConfig loads end-to-end test configuration from environment
// variables
func LoadE2EConfig() *E2EConfig {
	return &E2EConfig{
		RedisURL:     getEnvOrDefault("E2E_REDIS_URL", "localhost:6379"),
		RedisDB:      9, // keep test jobs away from any local development queue
		RunTimeout:   5 * time.Minute,
		PollInterval: 500 * time.Millisecond,
	}
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// TestEnvironment holds all initialized components for end-to-end tests
type TestEnvironment struct {
	Config *E2EConfig
	DB     *gorm.DB
	Queue  *queue.RedisQueue
	Repo   *state.Repository
	Logger zerolog.Logger
}

// SetupTestEnvironment initializes state and queue for an end-to-end test,
// skipping when Redis is unreachable
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	cfg := LoadE2EConfig()

	testLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("test", t.Name()).Logger()

	redisQueue, err := queue.NewRedisQueue(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.RedisURL, err)
	}
	t.Cleanup(func() { redisQueue.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisQueue.Ping(ctx); err != nil {
		t.Skipf("Redis ping failed at %s: %v", cfg.RedisURL, err)
	}

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, state.AutoMigrate(db))

	t.Cleanup(func() {
		db.Exec("DELETE FROM run_logs")
		db.Exec("DELETE FROM stage_executions")
		db.Exec("DELETE FROM pipeline_runs")
	})

	return &TestEnvironment{
		Config: cfg,
		DB:     db,
		Queue:  redisQueue,
		Repo:   state.NewRepository(db),
		Logger: testLogger,
	}
}

// checkPythonAvailable reports whether a host interpreter exists for the
// local environment provider
func checkPythonAvailable() bool {
	_, err := exec.LookPath("python3")
	return err == nil
}

// initAppRepo creates a git repository holding a minimal deployable app,
// including its own workflow definition
func initAppRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	files := map[string]string{
		"app.py":           "import json\n\nprint(json.dumps({'name': 'word-mail-merge'}))\n",
		"requirements.txt": "# no dependencies for the e2e fixture\n",
		"deploy.yml": `name: deploy word-mail-merge
on:
  push:
    branches: [main]
  dispatch: true
runtime:
  python: "3"
deploy:
  app: word-mail-merge
`,
	}

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err = worktree.Add(name)
		require.NoError(t, err)
	}

	_, err = worktree.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}
