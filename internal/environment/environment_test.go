package environment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(ProviderType("firecracker"))
	require.Error(t, err)

	var unknownErr ErrUnknownProvider
	assert.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, ProviderType("firecracker"), unknownErr.Type)
}

func TestNewProviderLocal(t *testing.T) {
	p, err := NewProvider(ProviderTypeLocal)
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
}

func TestLocalEnvironmentExec(t *testing.T) {
	var out strings.Builder
	env := &localEnvironment{
		workdir: t.TempDir(),
		output:  &out,
	}

	err := env.Exec(context.Background(), "sh", "-c", "echo stage output")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "stage output")
}

func TestLocalEnvironmentExecFailure(t *testing.T) {
	env := &localEnvironment{workdir: t.TempDir()}

	err := env.Exec(context.Background(), "sh", "-c", "exit 3")
	assert.Error(t, err, "non-zero exit must be an error")
}

func TestLocalEnvironmentExecEmpty(t *testing.T) {
	env := &localEnvironment{workdir: t.TempDir()}
	assert.Error(t, env.Exec(context.Background()))
}

func TestLocalEnvironmentInvocations(t *testing.T) {
	env := &localEnvironment{venvDir: "/work/.slotship-venv"}

	assert.Equal(t, []string{"/work/.slotship-venv/bin/python"}, env.Python())
	assert.Equal(t, []string{"/work/.slotship-venv/bin/python", "-m", "pip"}, env.Pip())
}

func TestFindInterpreterRequiresVersion(t *testing.T) {
	_, err := findInterpreter("")
	assert.Error(t, err)
}
