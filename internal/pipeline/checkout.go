package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/alvesdmateus/slotship/internal/workflow"
)

// CheckoutStage clones the triggering repository revision into the run's
// ephemeral working tree
type CheckoutStage struct{}

// NewCheckoutStage creates the checkout stage
func NewCheckoutStage() *CheckoutStage {
	return &CheckoutStage{}
}

// Name returns the stage name
func (s *CheckoutStage) Name() string {
	return StageCheckout
}

// Run clones the repository at the run's branch, then resolves the exact
// triggering commit when one is recorded
func (s *CheckoutStage) Run(ctx context.Context, rc *RunContext) error {
	opts := &git.CloneOptions{
		URL:      rc.RepoURL,
		Progress: rc.Output,
	}
	if rc.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(rc.Branch)
		opts.SingleBranch = true
	}

	fmt.Fprintf(rc.Output, "Cloning %s (branch %s)\n", rc.RepoURL, rc.Branch)

	repo, err := git.PlainCloneContext(ctx, rc.Workdir, false, opts)
	if err != nil {
		return fmt.Errorf("clone %s: %w", rc.RepoURL, err)
	}

	if rc.CommitSHA != "" {
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("open worktree: %w", err)
		}
		if err := worktree.Checkout(&git.CheckoutOptions{
			Hash: plumbing.NewHash(rc.CommitSHA),
		}); err != nil {
			return fmt.Errorf("checkout commit %s: %w", rc.CommitSHA, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	fmt.Fprintf(rc.Output, "Checked out %s\n", head.Hash())
	rc.CommitSHA = head.Hash().String()

	// Runs triggered without an injected workflow definition use the
	// repository's own copy
	if rc.Workflow == nil {
		path := rc.WorkflowPath
		if path == "" {
			path = "deploy.yml"
		}
		wf, err := workflow.Load(filepath.Join(rc.Workdir, path))
		if err != nil {
			return fmt.Errorf("load workflow: %w", err)
		}
		rc.Workflow = wf
		fmt.Fprintf(rc.Output, "Loaded workflow %q from %s\n", wf.Name, path)
	}

	return nil
}
