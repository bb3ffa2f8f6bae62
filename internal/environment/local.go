package environment

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LocalProvider runs pipeline commands directly on the host, isolating
// installed packages in a per-run virtual environment. Used by the CLI's
// local mode where no container runtime is required.
type LocalProvider struct{}

// NewLocalProvider creates a local execution environment provider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Name returns the provider name
func (p *LocalProvider) Name() string {
	return string(ProviderTypeLocal)
}

// Acquire verifies a matching interpreter is installed and creates the
// run's virtual environment
func (p *LocalProvider) Acquire(ctx context.Context, spec Spec) (Environment, error) {
	interpreter, err := findInterpreter(spec.PythonVersion)
	if err != nil {
		return nil, err
	}

	env := &localEnvironment{
		interpreter: interpreter,
		workdir:     spec.Workdir,
		venvDir:     filepath.Join(spec.Workdir, ".slotship-venv"),
		output:      spec.Output,
	}

	log.Info().
		Str("interpreter", interpreter).
		Str("venv", env.venvDir).
		Msg("Creating virtual environment")

	if err := env.Exec(ctx, interpreter, "-m", "venv", env.venvDir); err != nil {
		return nil, fmt.Errorf("create virtual environment: %w", err)
	}

	return env, nil
}

// findInterpreter locates an interpreter for the pinned version, preferring
// the versioned binary name
func findInterpreter(version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("runtime version is required")
	}

	candidates := []string{"python" + version}
	if major, _, ok := strings.Cut(version, "."); ok {
		candidates = append(candidates, "python"+major)
	}
	candidates = append(candidates, "python3")

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("python %s not available on host", version)
}

// localEnvironment executes commands on the host inside a venv
type localEnvironment struct {
	interpreter string
	workdir     string
	venvDir     string
	output      io.Writer
}

// Exec runs a command in the working directory with output streamed to the
// run's writer
func (e *localEnvironment) Exec(ctx context.Context, argv ...string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.workdir
	cmd.Stdout = e.output
	cmd.Stderr = e.output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q: %w", strings.Join(argv, " "), err)
	}

	return nil
}

// Python returns the venv interpreter invocation
func (e *localEnvironment) Python() []string {
	return []string{filepath.Join(e.venvDir, "bin", "python")}
}

// Pip returns the venv package installer invocation
func (e *localEnvironment) Pip() []string {
	return []string{filepath.Join(e.venvDir, "bin", "python"), "-m", "pip"}
}

// Describe returns the environment identity for logs
func (e *localEnvironment) Describe() string {
	return fmt.Sprintf("local venv (%s)", e.interpreter)
}

// Close removes the virtual environment
func (e *localEnvironment) Close(ctx context.Context) error {
	if e.venvDir == "" {
		return nil
	}
	if err := os.RemoveAll(e.venvDir); err != nil {
		return fmt.Errorf("remove virtual environment: %w", err)
	}
	return nil
}
