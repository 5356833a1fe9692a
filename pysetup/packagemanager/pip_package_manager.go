package packagemanager

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/pysetupops/pysetup/pysetup/commandmanager"
)

// PipManager drives pip through `<python> -m pip` so the install always
// targets the environment the interpreter belongs to.
type PipManager struct {
	Python         string
	CommandManager cm.CommandManager
}

var _ PackageManager = (*PipManager)(nil)

// PipError reports a failed pip invocation along with the child's exit status.
type PipError struct {
	Op       string
	ExitCode int
	Err      error
}

func (e *PipError) Error() string {
	return fmt.Sprintf("pip %s failed with exit code %d: %v", e.Op, e.ExitCode, e.Err)
}

func (e *PipError) Unwrap() error { return e.Err }

// ExitStatus returns the exit code of the failed pip process.
func (e *PipError) ExitStatus() int { return e.ExitCode }

// UpgradePackagingTools upgrades pip, setuptools and wheel to their latest
// compatible versions.
func (p *PipManager) UpgradePackagingTools(ctx context.Context) error {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.Python,
		Args:    []string{"-m", "pip", "install", "--upgrade", "pip", "setuptools", "wheel"},
	})
	if err != nil {
		return &PipError{Op: "upgrade", ExitCode: result.ExitCode, Err: err}
	}
	return nil
}

// InstallRequirements installs the packages listed in the given requirements
// file. Installation is restricted to prebuilt wheels and build isolation is
// disabled, so build-time dependencies must already be present. The file's
// contents are pip's concern; nothing is parsed here.
func (p *PipManager) InstallRequirements(ctx context.Context, path string) error {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.Python,
		Args:    []string{"-m", "pip", "install", "--only-binary=:all:", "--no-build-isolation", "-r", path},
	})
	if err != nil {
		return &PipError{Op: "install", ExitCode: result.ExitCode, Err: err}
	}
	return nil
}

// ListPackages returns the installed packages in freeze format (name==version).
func (p *PipManager) ListPackages(ctx context.Context) ([]string, error) {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.Python,
		Args:    []string{"-m", "pip", "list", "--format=freeze"},
	})
	if err != nil {
		return nil, &PipError{Op: "list", ExitCode: result.ExitCode, Err: err}
	}
	return splitLines(result.STDOUT), nil
}

// CheckOutdated returns the installed packages with a newer release available.
func (p *PipManager) CheckOutdated(ctx context.Context) ([]string, error) {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.Python,
		Args:    []string{"-m", "pip", "list", "--outdated", "--format=freeze"},
	})
	if err != nil {
		return nil, &PipError{Op: "list --outdated", ExitCode: result.ExitCode, Err: err}
	}
	return splitLines(result.STDOUT), nil
}

func splitLines(output string) []string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
