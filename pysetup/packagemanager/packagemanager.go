package packagemanager

import "context"

// PackageManager manages packages inside a Python environment.
type PackageManager interface {
	UpgradePackagingTools(ctx context.Context) error
	InstallRequirements(ctx context.Context, path string) error
	ListPackages(ctx context.Context) ([]string, error)
	CheckOutdated(ctx context.Context) ([]string, error)
}
