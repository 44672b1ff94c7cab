package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolsDocument = `openapi: 3.0.3
info:
  title: Search
  version: "1"
paths:
  /1/indexes:
    get:
      summary: List indices
  /1/indexes/{indexName}:
    parameters:
      - name: indexName
        in: path
        required: true
        schema:
          type: string
    delete:
      summary: Delete an index
`

func writeToolsFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	doc := filepath.Join(dir, "openapi.yaml")
	sel := filepath.Join(dir, "selection.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(toolsDocument), 0o600))
	require.NoError(t, os.WriteFile(sel, []byte("routes:\n  - path: /1/indexes\n    methods: [GET]\n"), 0o600))
	return doc, sel
}

func TestToolsListCmd(t *testing.T) {
	doc, sel := writeToolsFiles(t)

	out, err := runCommand(t, newToolsCmd(), "list", "--openapi-file", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "get_1_indexes")
	assert.Contains(t, out, "delete_1_indexes_indexname")
	assert.Contains(t, out, "List indices")

	out, err = runCommand(t, newToolsCmd(), "list", "--openapi-file", doc, "--selection-file", sel)
	require.NoError(t, err)
	assert.Contains(t, out, "get_1_indexes")
	assert.NotContains(t, out, "delete_1_indexes_indexname")
}

func TestToolsCmd_RequiresDocument(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := runCommand(t, newToolsCmd(), "list")
	assert.ErrorContains(t, err, "--openapi-file")

	_, err = runCommand(t, newToolsCmd(), "list", "--openapi-file", "missing.yaml")
	assert.Error(t, err)
}
