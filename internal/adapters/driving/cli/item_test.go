package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemShow(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "item", "show", "--as", "alice", "runbook")

	require.NoError(t, err)
	assert.Contains(t, out, "Deploy runbook (runbook)")
	assert.Contains(t, out, "Modality:    document")
	assert.Contains(t, out, "Sensitivity: basic")
	assert.Contains(t, out, "Status:      STORED")
	assert.Contains(t, out, "Tags:        ops")
	assert.Contains(t, out, "Created:     2025-03-01 12:00")
	assert.Contains(t, out, "[0] runbook#0")
	assert.Contains(t, out, "[1] runbook#1")
	assert.Contains(t, out, "Page the on-call lead.")
}

func TestItemShow_HiddenItemsAreNotFound(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"sensitivity above role", []string{"--as", "alice", "salaries"}},
		{"anonymous caller", []string{"runbook"}},
		{"missing item", []string{"--as", "root", "missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			_, err := executeCommand(t, append([]string{"item", "show"}, tt.args...)...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "not found")
		})
	}
}

func TestItemShow_Superadmin(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "item", "show", "--as", "root", "salaries")

	require.NoError(t, err)
	assert.Contains(t, out, "Band table.")
}
