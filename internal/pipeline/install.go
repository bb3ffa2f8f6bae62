package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alvesdmateus/slotship/internal/manifest"
)

// InstallStage installs the application's declared dependencies into the
// run's isolated environment
type InstallStage struct{}

// NewInstallStage creates the dependency installation stage
func NewInstallStage() *InstallStage {
	return &InstallStage{}
}

// Name returns the stage name
func (s *InstallStage) Name() string {
	return StageInstall
}

// Run parses the dependency manifest and installs it with the
// environment's package installer. A missing or malformed manifest fails
// the stage before any install runs.
func (s *InstallStage) Run(ctx context.Context, rc *RunContext) error {
	manifestPath := rc.Workflow.ManifestPath()

	reqs, err := manifest.ParseFile(filepath.Join(rc.Workdir, manifestPath))
	if err != nil {
		return fmt.Errorf("dependency manifest %s: %w", manifestPath, err)
	}

	fmt.Fprintf(rc.Output, "Installing %d dependencies: %s\n",
		len(reqs.Requirements), strings.Join(reqs.Names(), ", "))

	argv := append(rc.Env.Pip(), "install", "--no-input", "-r", manifestPath)
	if err := rc.Env.Exec(ctx, argv...); err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}

	return nil
}
