package pipeline

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvesdmateus/slotship/internal/workflow"
)

// writeTree creates a file tree under root from relative path -> content
func writeTree(t *testing.T, root string, files map[string]string) {
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// archiveNames opens the zip and returns its member names
func archiveNames(t *testing.T, path string) []string {
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestArchiveStagePackagesWorkingTree(t *testing.T) {
	workdir := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, os.MkdirAll(workdir, 0o755))

	writeTree(t, workdir, map[string]string{
		"app.py":                      "import flask\n",
		"requirements.txt":            "flask==2.0.1\n",
		"templates/index.html":        "<html></html>",
		".git/HEAD":                   "ref: refs/heads/main",
		"__pycache__/app.cpython.pyc": "bytecode",
		"src/__pycache__/x.pyc":       "bytecode",
		".slotship-venv/bin/python":   "elf",
		"docs/notes.md":               "internal notes",
	})

	wf := &workflow.Workflow{}
	wf.Package.Exclude = []string{"docs"}

	rc := &RunContext{
		RunID:    uuid.New(),
		Workflow: wf,
		Workdir:  workdir,
		Output:   io.Discard,
		Logger:   zerolog.Nop(),
	}

	stage := NewArchiveStage()
	require.NoError(t, stage.Run(context.Background(), rc))
	require.NotEmpty(t, rc.ArchivePath)
	t.Cleanup(func() { os.Remove(rc.ArchivePath) })

	names := archiveNames(t, rc.ArchivePath)
	assert.ElementsMatch(t, []string{
		"app.py",
		"requirements.txt",
		"templates/index.html",
	}, names)
}

func TestExcluded(t *testing.T) {
	excludes := []string{".git", "__pycache__", "docs/internal"}

	assert.True(t, excluded(".git/HEAD", excludes))
	assert.True(t, excluded("src/__pycache__/x.pyc", excludes))
	assert.True(t, excluded("docs/internal/notes.md", excludes))
	assert.True(t, excluded("docs/internal", excludes))

	assert.False(t, excluded("app.py", excludes))
	assert.False(t, excluded("docs/public/readme.md", excludes))
	assert.False(t, excluded("gitlog.txt", excludes))
}
