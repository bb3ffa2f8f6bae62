package hosting

import "fmt"

// Target identifies a deployment destination: an application name plus a
// named hosting slot supporting independent publish
type Target struct {
	App  string
	Slot string
}

// Credential authorizes publishing to a hosting slot. The secret value is
// injected at runtime and must never be persisted or logged.
type Credential struct {
	User     string
	Password string
}

// Result is the outcome of a deployment dispatch
type Result struct {
	URL        string
	Status     string
	DurationMS int64
}

// DeployStatus values reported by the hosting platform's deployment API
const (
	DeployStatusPending    = "pending"
	DeployStatusInProgress = "in_progress"
	DeployStatusSuccess    = "success"
	DeployStatusFailed     = "failed"
)

// ErrAuthenticationFailed is returned when the hosting platform rejects the
// publish credential
type ErrAuthenticationFailed struct {
	Target Target
}

func (e ErrAuthenticationFailed) Error() string {
	return fmt.Sprintf("publish credential rejected for %s/%s", e.Target.App, e.Target.Slot)
}

// ErrDeploymentFailed is returned when the platform reports a terminal
// failure for an uploaded artifact
type ErrDeploymentFailed struct {
	Target Target
	Status string
}

func (e ErrDeploymentFailed) Error() string {
	return fmt.Sprintf("deployment to %s/%s failed with status %q", e.Target.App, e.Target.Slot, e.Status)
}
