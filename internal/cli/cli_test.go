package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()

	for _, path := range [][]string{
		{"start"},
		{"run"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"seed"},
		{"users", "create-admin"},
		{"worker", "run"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.NotNil(t, cmd.RunE, path)
	}
}

func TestCreateAdminRequiresCredentials(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"users", "create-admin", "--username", "owner"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")
}

func TestDownFlagsDefaults(t *testing.T) {
	cmd, _, err := NewRootCommand().Find([]string{"migrate", "down"})
	require.NoError(t, err)

	steps, err := cmd.Flags().GetInt("steps")
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	all, err := cmd.Flags().GetBool("all")
	require.NoError(t, err)
	assert.False(t, all)
}
