package environment

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// containerWorkdir is where the run's working tree is mounted inside the
// container
const containerWorkdir = "/workspace"

// DockerProvider provisions execution environments as containers running
// the pinned interpreter image. Each pipeline run gets its own container,
// removed when the run ends.
type DockerProvider struct {
	client *client.Client
}

// NewDockerProvider creates a Docker-backed environment provider
func NewDockerProvider() (*DockerProvider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerProvider{client: cli}, nil
}

// Name returns the provider name
func (p *DockerProvider) Name() string {
	return string(ProviderTypeDocker)
}

// Acquire pulls the pinned interpreter image and starts a container with
// the run's working tree bind-mounted. An unavailable runtime version
// surfaces here as a pull failure.
func (p *DockerProvider) Acquire(ctx context.Context, spec Spec) (Environment, error) {
	if _, err := p.client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker daemon not accessible: %w", err)
	}

	imageRef := fmt.Sprintf("python:%s-slim", spec.PythonVersion)

	log.Info().
		Str("image", imageRef).
		Msg("Pulling runtime image")

	pull, err := p.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("runtime version %s unavailable: %w", spec.PythonVersion, err)
	}
	// Drain the pull stream; the daemon only finishes the pull once the
	// progress stream is consumed.
	if _, err := io.Copy(io.Discard, pull); err != nil {
		pull.Close()
		return nil, fmt.Errorf("pull runtime image: %w", err)
	}
	pull.Close()

	containerName := "slotship-run-" + uuid.New().String()[:8]

	created, err := p.client.ContainerCreate(ctx,
		&container.Config{
			Image:      imageRef,
			Cmd:        []string{"sleep", "infinity"},
			WorkingDir: containerWorkdir,
		},
		&container.HostConfig{
			Mounts: []mount.Mount{
				{
					Type:   mount.TypeBind,
					Source: spec.Workdir,
					Target: containerWorkdir,
				},
			},
			AutoRemove: false,
		},
		nil, nil, containerName)
	if err != nil {
		return nil, fmt.Errorf("create environment container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = p.client.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("start environment container: %w", err)
	}

	log.Info().
		Str("container", containerName).
		Str("image", imageRef).
		Msg("Execution environment ready")

	return &dockerEnvironment{
		client:      p.client,
		containerID: created.ID,
		imageRef:    imageRef,
		output:      spec.Output,
	}, nil
}

// dockerEnvironment executes commands inside the run's container
type dockerEnvironment struct {
	client      *client.Client
	containerID string
	imageRef    string
	output      io.Writer
}

// Exec runs a command in the container with output streamed to the run's
// writer
func (e *dockerEnvironment) Exec(ctx context.Context, argv ...string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	execResp, err := e.client.ContainerExecCreate(ctx, e.containerID, container.ExecOptions{
		Cmd:          argv,
		WorkingDir:   containerWorkdir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("create exec: %w", err)
	}

	attach, err := e.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()

	out := e.output
	if out == nil {
		out = io.Discard
	}
	if _, err := stdcopy.StdCopy(out, out, attach.Reader); err != nil {
		return fmt.Errorf("stream exec output: %w", err)
	}

	inspect, err := e.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return fmt.Errorf("inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return fmt.Errorf("command %q exited with code %d", strings.Join(argv, " "), inspect.ExitCode)
	}

	return nil
}

// Python returns the container interpreter invocation
func (e *dockerEnvironment) Python() []string {
	return []string{"python"}
}

// Pip returns the container package installer invocation. The container is
// the isolation boundary, so no venv indirection is needed.
func (e *dockerEnvironment) Pip() []string {
	return []string{"python", "-m", "pip"}
}

// Describe returns the environment identity for logs
func (e *dockerEnvironment) Describe() string {
	return fmt.Sprintf("docker container %.12s (%s)", e.containerID, e.imageRef)
}

// Close removes the environment container
func (e *dockerEnvironment) Close(ctx context.Context) error {
	if err := e.client.ContainerRemove(ctx, e.containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove environment container: %w", err)
	}
	return nil
}
