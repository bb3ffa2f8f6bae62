package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a local git repository with one commit and returns
// its path and commit hash
func initTestRepo(t *testing.T) (string, string) {
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import flask\n"), 0o644))

	workflowYAML := `name: deploy word-mail-merge
on:
  push:
    branches: [main]
runtime:
  python: "3.9"
deploy:
  app: word-mail-merge
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.yml"), []byte(workflowYAML), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	_, err = worktree.Add("app.py")
	require.NoError(t, err)
	_, err = worktree.Add("deploy.yml")
	require.NoError(t, err)

	hash, err := worktree.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir, hash.String()
}

func TestCheckoutStageClonesRepository(t *testing.T) {
	repoDir, commit := initTestRepo(t)

	rc := &RunContext{
		RunID:   uuid.New(),
		RepoURL: repoDir,
		Workdir: filepath.Join(t.TempDir(), "checkout"),
		Output:  io.Discard,
		Logger:  zerolog.Nop(),
	}

	stage := NewCheckoutStage()
	require.NoError(t, stage.Run(context.Background(), rc))

	assert.FileExists(t, filepath.Join(rc.Workdir, "app.py"))
	assert.Equal(t, commit, rc.CommitSHA, "resolved commit is recorded on the run")
}

func TestCheckoutStageUnreachableRepository(t *testing.T) {
	rc := &RunContext{
		RunID:   uuid.New(),
		RepoURL: filepath.Join(t.TempDir(), "does-not-exist"),
		Workdir: filepath.Join(t.TempDir(), "checkout"),
		Output:  io.Discard,
		Logger:  zerolog.Nop(),
	}

	stage := NewCheckoutStage()
	assert.Error(t, stage.Run(context.Background(), rc))
}
