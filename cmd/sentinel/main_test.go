package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/literal-sentinel/internal/report"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SENTINEL_LOGGING_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Literal-Sentinel "+version))
}

func TestScanCommand_Summary(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":            "password = \"supersecret123\"\ntimeout = 30\n",
		"node_modules/x.js": "password = \"ignored-secret\"\n",
	})
	reports := t.TempDir()

	out, err := execute(t, "scan", root, "--report-dir", reports)
	require.NoError(t, err)
	assert.Contains(t, out, "Run ")
	assert.Contains(t, out, "Report written to")

	written, err := filepath.Glob(filepath.Join(reports, "literal-analysis-*.json"))
	require.NoError(t, err)
	assert.Len(t, written, 1)
}

func TestScanCommand_JSON(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "password = \"supersecret123\"\n",
	})

	out, err := execute(t, "scan", root, "--json")
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, 1, doc.Result.DocumentsScanned)
	assert.Len(t, doc.Result.Candidates, 2)
	for _, c := range doc.Result.Candidates {
		assert.Equal(t, "app.py", c.DocumentPath)
	}
}

func TestScanCommand_FailOnSecurity(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "password = \"supersecret123\"\n",
	})

	_, err := execute(t, "scan", root, "--fail-on-security")
	assert.ErrorIs(t, err, errSecurityFindings)

	clean := writeTree(t, map[string]string{"app.py": "timeout = 30\n"})
	_, err = execute(t, "scan", clean, "--fail-on-security")
	assert.NoError(t, err)
}

func TestScanCommand_PersistsToStore(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "password = \"supersecret123\"\n",
	})
	t.Setenv("SENTINEL_STORE_ENABLED", "true")
	t.Setenv("SENTINEL_STORE_DATABASE_URL", filepath.Join(t.TempDir(), "runs.db"))

	_, err := execute(t, "scan", root)
	require.NoError(t, err)

	out, err := execute(t, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, root)

	out, err = execute(t, "runs", "placeholders")
	require.NoError(t, err)
	assert.Contains(t, out, "{{API_SECRET}}")
}

func TestCatalogCommands(t *testing.T) {
	out, err := execute(t, "catalog", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "database-connection")

	exported, err := execute(t, "catalog", "export")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exported), 0o644))

	out, err = execute(t, "catalog", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rules")
	assert.NotContains(t, out, "skipped")
}

func TestRunsCommand_StoreDisabled(t *testing.T) {
	_, err := execute(t, "runs", "list")
	assert.Error(t, err)
}

func TestRewriteCommand(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "endpoint = \"https://api.example.com/v1\"\n",
	})
	path := filepath.Join(root, "app.py")

	out, err := execute(t, "rewrite", path)
	require.NoError(t, err)
	assert.Equal(t, "endpoint = \"{{API_ENDPOINT}}\"\n", out)

	out, err = execute(t, "rewrite", path, "--write")
	require.NoError(t, err)
	assert.Contains(t, out, "1 literals replaced")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "endpoint = \"{{API_ENDPOINT}}\"\n", string(data))
}

func TestScanCommand_Redact(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "password = \"supersecret123\"\n",
	})

	out, err := execute(t, "scan", root, "--json", "--redact", "--fail-on-security")
	assert.ErrorIs(t, err, errSecurityFindings)
	assert.NotContains(t, out, "supersecret123")
	assert.Contains(t, out, "[REDACTED]")
}
