// Package interpreter resolves which Python interpreter a setup run uses.
package interpreter

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Resolve returns the path of the Python interpreter to invoke. An explicit
// override wins; otherwise an active virtualenv's interpreter is used, and
// failing that python3/python from PATH.
func Resolve(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		python := filepath.Join(venv, "bin", "python")
		if _, err := os.Stat(python); err == nil {
			return python, nil
		}
	}

	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no Python interpreter found: tried $VIRTUAL_ENV, python3 and python on PATH")
}
