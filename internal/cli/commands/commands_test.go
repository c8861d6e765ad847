package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate [dir]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"format", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history [run-id]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	for _, flag := range []string{"limit", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRulesCommand_JSON(t *testing.T) {
	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "json"})

	require.NoError(t, cmd.Execute())

	var out struct {
		Violations []struct {
			Kind        string `json:"kind"`
			Description string `json:"description"`
		} `json:"violations"`
		Functions map[string][]string `json:"functions"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	require.Len(t, out.Violations, 4)
	assert.Equal(t, "missing_key", out.Violations[0].Kind)
	assert.Contains(t, out.Functions["aggregate"], "SUM")
	assert.Contains(t, out.Functions["conditional"], "COALESCE")
}

func TestRulesCommand_Markdown(t *testing.T) {
	cmd := NewRulesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "markdown"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "# Violation Kinds")
	assert.Contains(t, output, "invalid_format")
	assert.Contains(t, output, "SUM")
	assert.Contains(t, output, "may not be nested")
}
