package pipeline

import (
	"context"
	"fmt"

	"github.com/alvesdmateus/slotship/internal/environment"
)

// RuntimeStage provisions the run's execution environment with the
// interpreter version the workflow pins
type RuntimeStage struct {
	provider environment.Provider
}

// NewRuntimeStage creates the runtime provisioning stage
func NewRuntimeStage(provider environment.Provider) *RuntimeStage {
	return &RuntimeStage{provider: provider}
}

// Name returns the stage name
func (s *RuntimeStage) Name() string {
	return StageRuntime
}

// Run acquires an environment for the pinned runtime version. An
// unavailable version fails the stage.
func (s *RuntimeStage) Run(ctx context.Context, rc *RunContext) error {
	version := rc.Workflow.Runtime.Python

	fmt.Fprintf(rc.Output, "Provisioning python %s (%s provider)\n", version, s.provider.Name())

	env, err := s.provider.Acquire(ctx, environment.Spec{
		PythonVersion: version,
		Workdir:       rc.Workdir,
		Output:        rc.Output,
	})
	if err != nil {
		return fmt.Errorf("provision runtime: %w", err)
	}

	rc.Env = env
	fmt.Fprintf(rc.Output, "Environment ready: %s\n", env.Describe())

	return nil
}
