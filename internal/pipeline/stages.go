package pipeline

import (
	"github.com/alvesdmateus/slotship/internal/environment"
	"github.com/alvesdmateus/slotship/internal/hosting"
	"github.com/alvesdmateus/slotship/internal/mailmerge"
)

// Stages builds the five-stage deployment pipeline in its fixed order
func Stages(provider environment.Provider, client *hosting.Client, cred hosting.Credential, verifier *mailmerge.Verifier) []Stage {
	return []Stage{
		NewCheckoutStage(),
		NewRuntimeStage(provider),
		NewInstallStage(),
		NewArchiveStage(),
		NewDeployStage(client, cred, verifier),
	}
}
