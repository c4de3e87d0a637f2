package procexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealCommandBuilder_Echo(t *testing.T) {
	b := NewRealCommandBuilder()
	out, err := b.BuildCommand("echo", "-n", "hello").Run()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestRealCommandBuilder_NonZeroExit(t *testing.T) {
	b := NewRealCommandBuilder()
	_, err := b.BuildCommand("false").Run()
	require.Error(t, err)
}

func TestMockCommandBuilder_RecordsInvocation(t *testing.T) {
	b := &MockCommandBuilder{Executor: &MockCommandExecutor{Output: []byte(`{"ok":true}`)}}

	exec := b.BuildCommand("tailscale", "status", "--json")
	out, err := exec.Run()

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(out))
	require.Len(t, b.Commands, 1)
	assert.Equal(t, "tailscale", b.Commands[0].Name)
	assert.Equal(t, []string{"status", "--json"}, b.Commands[0].Args)
}
