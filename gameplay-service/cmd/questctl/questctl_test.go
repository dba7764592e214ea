package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"adventure-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildsResolve(t *testing.T) {
	out, err := run(t, "builds", "resolve", "--class", "Wizard", "--race", "Elf", "--name", "Aria")
	require.NoError(t, err)

	var export models.BuildExport
	require.NoError(t, json.Unmarshal([]byte(out), &export))
	assert.True(t, export.Success)
	assert.Equal(t, "Aria", export.Build.Name)
	assert.Equal(t, "Wizard", export.Build.Class)
}

func TestBuildsResolve_Missing(t *testing.T) {
	out, err := run(t, "builds", "resolve", "--class", "Bard")
	assert.Error(t, err)
	assert.Contains(t, out, `"success": false`)
}

func TestBuildsResolve_RequiresClass(t *testing.T) {
	_, err := run(t, "builds", "resolve")
	assert.Error(t, err)
}

func TestScenariosList(t *testing.T) {
	out, err := run(t, "scenarios", "list", "--dir", "")
	require.NoError(t, err)
	assert.Contains(t, out, "whispering-crypt")
	assert.Contains(t, out, "merchant-road")
}

func TestScenariosValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
slug: tiny
title: Tiny
nodes:
  - sequence: 1
    prompt: "A door."
    choices:
      - slot: top-left
        label: Open it
        result: It creaks open.
`), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("slug: broken\nnodes: []\n"), 0o644))

	out, err := run(t, "scenarios", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+good+" (tiny, 1 stages)")

	out, err = run(t, "scenarios", "validate", good, bad)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL "+bad)
}

func TestMigrateStepsRejectsZero(t *testing.T) {
	_, err := run(t, "migrate", "steps", "0")
	assert.ErrorContains(t, err, "non-zero integer")
}
