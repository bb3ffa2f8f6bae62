package workflow

import (
	"fmt"

	"github.com/alvesdmateus/slotship/pkg/models"
)

// Workflow is the declarative pipeline definition committed to the
// application repository (deploy.yml)
type Workflow struct {
	Name         string           `yaml:"name"`
	On           Triggers         `yaml:"on"`
	Runtime      RuntimeSpec      `yaml:"runtime"`
	Dependencies DependenciesSpec `yaml:"dependencies"`
	Package      PackageSpec      `yaml:"package"`
	Deploy       DeploySpec       `yaml:"deploy"`
}

// Triggers declares what starts a pipeline run
type Triggers struct {
	Push     *PushTrigger `yaml:"push"`
	Dispatch bool         `yaml:"dispatch"`
}

// PushTrigger filters push events by branch
type PushTrigger struct {
	Branches []string `yaml:"branches"`
}

// RuntimeSpec pins the interpreter installed into the execution environment
type RuntimeSpec struct {
	Python string `yaml:"python"`
}

// DependenciesSpec locates the dependency manifest
type DependenciesSpec struct {
	Manifest string `yaml:"manifest"`
}

// PackageSpec controls artifact packaging
type PackageSpec struct {
	Exclude []string `yaml:"exclude"`
}

// DeploySpec identifies the deployment target
type DeploySpec struct {
	App  string `yaml:"app"`
	Slot string `yaml:"slot"`
}

// TriggerEvent is an incoming repository event evaluated against the
// workflow's trigger declarations
type TriggerEvent struct {
	Type      models.TriggerType
	Branch    string
	CommitSHA string
}

// DefaultExcludes are paths conventionally left out of the deployment
// archive regardless of the workflow's own exclusion list.
var DefaultExcludes = []string{
	".git",
	".github",
	"__pycache__",
	"venv",
	".venv",
}

// Validate checks the workflow definition for structural errors
func (w *Workflow) Validate() error {
	if w.On.Push == nil && !w.On.Dispatch {
		return fmt.Errorf("workflow declares no triggers")
	}
	if w.On.Push != nil && len(w.On.Push.Branches) == 0 {
		return fmt.Errorf("push trigger declares no branches")
	}
	if w.Runtime.Python == "" {
		return fmt.Errorf("runtime.python version is required")
	}
	if w.Deploy.App == "" {
		return fmt.Errorf("deploy.app is required")
	}
	return nil
}

// Matches reports whether the given event should start a pipeline run
// under this workflow's trigger declarations
func (w *Workflow) Matches(event TriggerEvent) bool {
	switch event.Type {
	case models.TriggerPush:
		if w.On.Push == nil {
			return false
		}
		for _, branch := range w.On.Push.Branches {
			if branch == event.Branch {
				return true
			}
		}
		return false
	case models.TriggerDispatch:
		return w.On.Dispatch
	default:
		return false
	}
}

// ManifestPath returns the dependency manifest path, defaulting to
// requirements.txt when the workflow leaves it unset
func (w *Workflow) ManifestPath() string {
	if w.Dependencies.Manifest == "" {
		return "requirements.txt"
	}
	return w.Dependencies.Manifest
}

// Excludes returns the workflow's packaging exclusions merged with the
// conventional defaults
func (w *Workflow) Excludes() []string {
	seen := make(map[string]bool, len(DefaultExcludes)+len(w.Package.Exclude))
	merged := make([]string, 0, len(DefaultExcludes)+len(w.Package.Exclude))

	for _, e := range DefaultExcludes {
		if !seen[e] {
			seen[e] = true
			merged = append(merged, e)
		}
	}
	for _, e := range w.Package.Exclude {
		if !seen[e] {
			seen[e] = true
			merged = append(merged, e)
		}
	}

	return merged
}

// SlotName returns the deployment slot, defaulting to production
func (w *Workflow) SlotName() string {
	if w.Deploy.Slot == "" {
		return "production"
	}
	return w.Deploy.Slot
}
