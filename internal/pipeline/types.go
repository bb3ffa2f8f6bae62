package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/environment"
	"github.com/alvesdmateus/slotship/internal/hosting"
	"github.com/alvesdmateus/slotship/internal/workflow"
)

// Stage names in pipeline order
const (
	StageCheckout = "checkout"
	StageRuntime  = "runtime"
	StageInstall  = "install"
	StagePackage  = "package"
	StageDeploy   = "deploy"
)

// Stage is one step of the deployment pipeline
type Stage interface {
	// Name returns the stage name shown in run records and logs
	Name() string

	// Run executes the stage. Any error halts the pipeline; later stages
	// never start.
	Run(ctx context.Context, rc *RunContext) error
}

// RunContext carries the state of one pipeline run across stages. Stages
// communicate forward through it: checkout fills the working tree, runtime
// provisioning sets Env, packaging sets ArchivePath, deployment sets Result.
type RunContext struct {
	RunID     uuid.UUID
	Workflow  *workflow.Workflow
	RepoURL   string
	Branch    string
	CommitSHA string

	// WorkflowPath locates the workflow definition inside the working tree
	// when no Workflow was injected; defaults to deploy.yml
	WorkflowPath string

	// Workdir is the host path of the run's ephemeral working tree
	Workdir string

	// Output receives stage output. The engine routes it through the
	// credential redactor into the current stage's capture buffer.
	Output io.Writer

	// Env is the run's execution environment, set by the runtime stage
	Env environment.Environment

	// ArchivePath is the packaged artifact, set by the package stage
	ArchivePath string

	// Result is the deployment outcome, set by the deploy stage
	Result *hosting.Result

	Logger zerolog.Logger
}

// switchWriter forwards writes to a swappable destination. The engine
// repoints it at each stage's capture buffer so a single writer handed out
// early (to the execution environment, for example) always lands in the
// stage currently running.
type switchWriter struct {
	mu  sync.Mutex
	dst io.Writer
}

func (w *switchWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dst == nil {
		return len(p), nil
	}
	return w.dst.Write(p)
}

func (w *switchWriter) swap(dst io.Writer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dst = dst
}
