package environment

import (
	"context"
	"io"
)

// Spec describes the execution environment a pipeline run needs
type Spec struct {
	// PythonVersion is the pinned interpreter version, e.g. "3.9"
	PythonVersion string

	// Workdir is the host path of the run's working tree
	Workdir string

	// Output receives command output; the engine passes a
	// credential-redacting writer here
	Output io.Writer
}

// Environment is an ephemeral execution environment exclusively owned by a
// single pipeline run. It is created during the runtime-provisioning stage
// and destroyed when the run ends.
type Environment interface {
	// Exec runs a command inside the environment with the run's working
	// tree as the current directory. Output is streamed to the spec's
	// writer; a non-zero exit is an error.
	Exec(ctx context.Context, argv ...string) error

	// Python returns the argv prefix invoking the provisioned interpreter
	Python() []string

	// Pip returns the argv prefix invoking the environment's package
	// installer, targeting the run's isolated package set
	Pip() []string

	// Describe returns a short human-readable identity for logs
	Describe() string

	// Close destroys the environment and releases its resources
	Close(ctx context.Context) error
}

// Provider acquires execution environments
type Provider interface {
	// Acquire creates an environment satisfying the spec, including the
	// pinned interpreter version. Fails when the requested runtime version
	// is unavailable.
	Acquire(ctx context.Context, spec Spec) (Environment, error)

	// Name returns the provider name (e.g. "docker", "local")
	Name() string
}

// ProviderType selects an environment provider
type ProviderType string

const (
	ProviderTypeDocker ProviderType = "docker"
	ProviderTypeLocal  ProviderType = "local"
)

// NewProvider creates an environment provider of the given type
func NewProvider(providerType ProviderType) (Provider, error) {
	switch providerType {
	case ProviderTypeDocker:
		return NewDockerProvider()
	case ProviderTypeLocal:
		return NewLocalProvider(), nil
	default:
		return nil, ErrUnknownProvider{Type: providerType}
	}
}

// ErrUnknownProvider is returned when an unknown provider type is requested
type ErrUnknownProvider struct {
	Type ProviderType
}

func (e ErrUnknownProvider) Error() string {
	return "unknown environment provider: " + string(e.Type)
}
