package interpreter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveOverride(t *testing.T) {
	path, err := Resolve("/opt/python/bin/python3.11")
	assert.NoError(t, err)
	assert.Equal(t, "/opt/python/bin/python3.11", path)
}

func TestResolveVirtualEnv(t *testing.T) {
	venv := t.TempDir()
	binDir := filepath.Join(venv, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatalf("Failed to create bin dir: %v", err)
	}
	python := filepath.Join(binDir, "python")
	if err := os.WriteFile(python, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("Failed to create interpreter stub: %v", err)
	}
	t.Setenv("VIRTUAL_ENV", venv)

	path, err := Resolve("")
	assert.NoError(t, err)
	assert.Equal(t, python, path)
}

func TestResolveIgnoresStaleVirtualEnv(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", filepath.Join(t.TempDir(), "gone"))

	path, err := Resolve("")
	if err != nil {
		// No python on PATH in this environment; the error must name what was tried.
		assert.Contains(t, err.Error(), "python3")
		return
	}
	assert.NotContains(t, path, "gone")
}
