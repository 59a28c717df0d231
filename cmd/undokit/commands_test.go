package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "undokit dev")
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	doc := writeTemp(t, dir, "doc.json", `{"name":"Ada","tags":[]}`)
	script := writeTemp(t, dir, "edit.lua", `
		undo.record("Rename", function()
			undo.set("name", "Grace")
			undo.set("title", "Rear Admiral")
		end)
		undo.set("tags.0", "navy")
		undo.undo()
		print("can redo", undo.can_redo())
	`)

	out, stderr, err := execute(t, "run", "--doc", doc, "--log-level", "error", "--history", script)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Grace","title":"Rear Admiral","tags":[]}`, out)
	assert.Contains(t, stderr, "can redo\ttrue")
	assert.Contains(t, stderr, "Rename")
}

func TestRunWritesOutFile(t *testing.T) {
	dir := t.TempDir()
	doc := writeTemp(t, dir, "doc.json", `{"n":1}`)
	cfg := writeTemp(t, dir, "undokit.toml", "[history]\nmerge_span = \"1m\"\n[logging]\nlevel = \"error\"\n")
	script := writeTemp(t, dir, "edit.lua", `
		undo.set("n", 2)
		undo.set("n", 3)
		assert(#undo.history() == 1)
	`)
	outPath := filepath.Join(dir, "out.json")

	_, _, err := execute(t, "run", "--doc", doc, "--config", cfg, "--out", outPath, "--pretty", script)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"n\": 3\n}\n", string(data))
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeTemp(t, dir, "doc.json", `{}`)
	bad := writeTemp(t, dir, "bad.json", `{`)
	script := writeTemp(t, dir, "ok.lua", `undo.set("a", 1)`)
	broken := writeTemp(t, dir, "broken.lua", `error("nope")`)

	_, _, err := execute(t, "run", script)
	assert.Error(t, err, "missing --doc")

	_, _, err = execute(t, "run", "--doc", bad, "--log-level", "error", script)
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--doc", good, "--log-level", "error", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, _, err = execute(t, "run", "--doc", good, "--log-level", "loud", script)
	assert.Error(t, err)
}
