package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/alvesdmateus/slotship/internal/hosting"
	"github.com/alvesdmateus/slotship/internal/mailmerge"
)

// DeployStage pushes the packaged artifact to the target hosting slot and
// verifies the deployed service responds
type DeployStage struct {
	client   *hosting.Client
	cred     hosting.Credential
	verifier *mailmerge.Verifier
}

// NewDeployStage creates the deployment dispatch stage. A nil verifier
// skips post-deploy verification.
func NewDeployStage(client *hosting.Client, cred hosting.Credential, verifier *mailmerge.Verifier) *DeployStage {
	return &DeployStage{client: client, cred: cred, verifier: verifier}
}

// Name returns the stage name
func (s *DeployStage) Name() string {
	return StageDeploy
}

// Run uploads the archive to the slot, records the resulting public URL,
// and smoke-tests the deployed service
func (s *DeployStage) Run(ctx context.Context, rc *RunContext) error {
	target := hosting.Target{
		App:  rc.Workflow.Deploy.App,
		Slot: rc.Workflow.SlotName(),
	}

	fmt.Fprintf(rc.Output, "Deploying to %s/%s\n", target.App, target.Slot)

	result, err := s.client.Deploy(ctx, target, s.cred, rc.ArchivePath)
	if err != nil {
		return err
	}
	rc.Result = result

	fmt.Fprintf(rc.Output, "Deployed to %s (%s, %dms)\n",
		result.URL, result.Status, result.DurationMS)

	if s.verifier == nil {
		return nil
	}

	if err := s.verify(ctx, result.URL); err != nil {
		return fmt.Errorf("post-deploy verification: %w", err)
	}

	fmt.Fprintln(rc.Output, "Post-deploy verification passed")
	return nil
}

// verify retries the smoke test while the freshly swapped slot warms up
func (s *DeployStage) verify(ctx context.Context, url string) error {
	const attempts = 3

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
		}
		if err = s.verifier.Verify(ctx, url); err == nil {
			return nil
		}
	}

	return err
}
