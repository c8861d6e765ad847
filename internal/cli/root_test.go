package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `subject_area: Sales
table_info:
  - table: orders
    joins: []
columns:
  order_id:
    name: Order ID
    type: integer
    column: order_id
    desc: Primary order identifier
  revenue:
    name: Revenue
    type: decimal
    column: revenue
    desc: Order revenue
`

const testSemantics = `folder: Sales
type: analysis
source:
  schema.orders:
    columns: [order_id, revenue]
metrics:
  total_revenue:
    name: Total Revenue
    calculation: SUM(revenue)
`

const brokenSemantics = `folder: Sales
type: analysis
source:
  schema.orders:
    columns: [order_id]
metrics:
  total_revenue:
    calculation: FOOBAR(revenue)
`

func writeMetadata(t *testing.T, dir, sub, name, content string) {
	t.Helper()
	full := filepath.Join(dir, sub, "assets")
	require.NoError(t, os.MkdirAll(full, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(full, name), []byte(content), 0600))
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "semalint", cmd.Use)
	assert.Equal(t, Version, cmd.Version)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"validate", "history", "rules", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "metadata-dir", "state", "concurrency", "no-history", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestValidateCommand_PassingRun(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "schema", "orders.yaml", testSchema)
	writeMetadata(t, dir, "semantics", "sales.yaml", testSemantics)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", dir, "--no-history", "--format", "json"})

	require.NoError(t, cmd.Execute())

	var out struct {
		Documents int `json:"documents"`
		Passed    int `json:"passed"`
		Failed    int `json:"failed"`
		Outcomes  []struct {
			Document string `json:"document"`
			Kind     string `json:"kind"`
			Passed   bool   `json:"passed"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 2, out.Documents)
	assert.Equal(t, 2, out.Passed)
	assert.Equal(t, 0, out.Failed)
}

func TestValidateCommand_FailingRunExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "schema", "orders.yaml", testSchema)
	writeMetadata(t, dir, "semantics", "sales.yaml", brokenSemantics)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", dir, "--no-history", "--format", "json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateCommand_HistoryRecorded(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "schema", "orders.yaml", testSchema)
	statePath := filepath.Join(t.TempDir(), "state.db")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", dir, "--state", statePath, "--format", "json"})
	require.NoError(t, cmd.Execute())

	// A fresh root command, pointed at the same state database.
	histCmd := NewRootCmd()
	histBuf := new(bytes.Buffer)
	histCmd.SetOut(histBuf)
	histCmd.SetErr(histBuf)
	histCmd.SetArgs([]string{"history", "--state", statePath, "--format", "json"})
	require.NoError(t, histCmd.Execute())

	var runs []struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Documents int    `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(histBuf.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "passed", runs[0].Status)
	assert.Equal(t, 1, runs[0].Documents)
}

func TestValidateCommand_MissingDirectory(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate", filepath.Join(t.TempDir(), "missing"), "--no-history"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
