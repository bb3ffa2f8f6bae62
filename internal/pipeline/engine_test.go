package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alvesdmateus/slotship/internal/secrets"
	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/pkg/models"
)

func setupTestRepo(t *testing.T) *state.Repository {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open sqlite database")
	require.NoError(t, state.AutoMigrate(db), "failed to run migrations")

	t.Cleanup(func() {
		db.Exec("DELETE FROM stage_executions")
		db.Exec("DELETE FROM pipeline_runs")
	})

	return state.NewRepository(db)
}

// fakeStage records whether it ran, optionally writes output and fails
type fakeStage struct {
	name   string
	output string
	err    error
	ran    bool
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) Run(ctx context.Context, rc *RunContext) error {
	s.ran = true
	if s.output != "" {
		fmt.Fprintln(rc.Output, s.output)
	}
	return s.err
}

func newTestEngine(t *testing.T, stages []Stage, redactor *secrets.Redactor) (*Engine, *state.Repository) {
	repo := setupTestRepo(t)
	tracker := NewTracker(repo)
	if redactor == nil {
		redactor = secrets.NewRedactor()
	}
	return NewEngine(stages, tracker, redactor, time.Minute, zerolog.Nop()), repo
}

// createTestRun inserts the parent run row stage executions reference
func createTestRun(t *testing.T, repo *state.Repository) uuid.UUID {
	run := &state.PipelineRun{
		WorkflowName: "deploy word-mail-merge",
		AppName:      "word-mail-merge",
		Slot:         "production",
		Trigger:      models.TriggerPush,
		RepoURL:      "https://example.com/acme/word-mail-merge.git",
		Branch:       "main",
		Status:       models.StatusRunning,
	}
	require.NoError(t, repo.CreateRun(context.Background(), run))
	return run.ID
}

func TestEngineRunsStagesInOrder(t *testing.T) {
	var order []string
	mkStage := func(name string) Stage {
		return &recordingStage{name: name, order: &order}
	}

	engine, repo := newTestEngine(t, []Stage{
		mkStage("checkout"), mkStage("runtime"), mkStage("install"),
	}, nil)

	rc := &RunContext{RunID: createTestRun(t, repo), Logger: zerolog.Nop()}
	require.NoError(t, engine.Execute(context.Background(), rc))

	assert.Equal(t, []string{"checkout", "runtime", "install"}, order)

	stages, err := repo.GetStageExecutions(context.Background(), rc.RunID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	for i, stage := range stages {
		assert.Equal(t, i, stage.Ordinal)
		assert.Equal(t, models.StageSucceeded, stage.Status)
		assert.NotNil(t, stage.CompletedAt)
	}
}

// recordingStage appends its name to a shared order slice
type recordingStage struct {
	name  string
	order *[]string
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Run(ctx context.Context, rc *RunContext) error {
	*s.order = append(*s.order, s.name)
	return nil
}

func TestEngineHaltsOnFirstFailure(t *testing.T) {
	first := &fakeStage{name: "checkout"}
	failing := &fakeStage{name: "runtime", err: fmt.Errorf("image pull failed")}
	never := &fakeStage{name: "install"}
	neverEither := &fakeStage{name: "deploy"}

	engine, repo := newTestEngine(t, []Stage{first, failing, never, neverEither}, nil)

	rc := &RunContext{RunID: createTestRun(t, repo), Logger: zerolog.Nop()}
	err := engine.Execute(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime")

	assert.True(t, first.ran)
	assert.True(t, failing.ran)
	assert.False(t, never.ran, "stages after a failure must never start")
	assert.False(t, neverEither.ran)

	stages, err := repo.GetStageExecutions(context.Background(), rc.RunID)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, models.StageSucceeded, stages[0].Status)
	assert.Equal(t, models.StageFailed, stages[1].Status)
	assert.Equal(t, models.StageSkipped, stages[2].Status)
	assert.Equal(t, models.StageSkipped, stages[3].Status)
}

func TestEngineCapturesStageOutput(t *testing.T) {
	stage := &fakeStage{name: "checkout", output: "Cloning repository"}

	engine, repo := newTestEngine(t, []Stage{stage}, nil)

	rc := &RunContext{RunID: createTestRun(t, repo), Logger: zerolog.Nop()}
	require.NoError(t, engine.Execute(context.Background(), rc))

	stages, err := repo.GetStageExecutions(context.Background(), rc.RunID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Contains(t, stages[0].Output, "Cloning repository")
}

func TestEngineRedactsCredentialInOutputAndError(t *testing.T) {
	const secret = "s3cret-publish-pass"

	leaky := &fakeStage{
		name:   "deploy",
		output: "authenticating with " + secret,
		err:    fmt.Errorf("upload failed for user with password %s", secret),
	}

	engine, repo := newTestEngine(t, []Stage{leaky}, secrets.NewRedactor(secret))

	rc := &RunContext{RunID: createTestRun(t, repo), Logger: zerolog.Nop()}
	err := engine.Execute(context.Background(), rc)
	require.Error(t, err)

	stages, err := repo.GetStageExecutions(context.Background(), rc.RunID)
	require.NoError(t, err)
	require.Len(t, stages, 1)

	assert.NotContains(t, stages[0].Output, secret)
	assert.Contains(t, stages[0].Output, secrets.Mask)
	assert.NotContains(t, stages[0].Error, secret)
	assert.Contains(t, stages[0].Error, secrets.Mask)
}

func TestEngineStageTimeout(t *testing.T) {
	slow := &ctxWaitStage{}

	repo := setupTestRepo(t)
	engine := NewEngine([]Stage{slow}, NewTracker(repo), secrets.NewRedactor(),
		10*time.Millisecond, zerolog.Nop())

	rc := &RunContext{RunID: createTestRun(t, repo), Logger: zerolog.Nop()}
	err := engine.Execute(context.Background(), rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ctxWaitStage blocks until its context expires
type ctxWaitStage struct{}

func (s *ctxWaitStage) Name() string { return "slow" }

func (s *ctxWaitStage) Run(ctx context.Context, rc *RunContext) error {
	<-ctx.Done()
	return ctx.Err()
}
