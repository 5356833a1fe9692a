package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/pysetupops/pysetup/logger"
	"github.com/pysetupops/pysetup/pysetup/commandmanager"
	"github.com/pysetupops/pysetup/pysetup/config"
	"github.com/pysetupops/pysetup/pysetup/interpreter"
	"github.com/pysetupops/pysetup/pysetup/packagemanager"
	"github.com/pysetupops/pysetup/pysetup/runner"
)

type flags struct {
	ConfigPath     string
	Debug          bool
	Hostnames      hostnamesValue
	KeyPassPrompt  bool
	ListOutdated   bool
	ListPackages   bool
	LogFileName    string
	PasswordPrompt bool
	Python         string
	Requirements   string
	Timeout        time.Duration
	Username       string
}

type hostnamesValue []string

func (h *hostnamesValue) String() string {
	return strings.Join(*h, ",")
}

func (h *hostnamesValue) Set(value string) error {
	*h = append(*h, value)
	return nil
}

func parseFlags() *flags {
	f := &flags{}
	flag.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	flag.BoolVar(&f.KeyPassPrompt, "keypass", false, "Prompt for the SSH key passphrase")
	flag.BoolVar(&f.ListOutdated, "outdated", false, "List installed packages with a newer release available")
	flag.BoolVar(&f.ListPackages, "list", false, "List installed packages instead of running the setup")
	flag.BoolVar(&f.PasswordPrompt, "password", false, "Prompt for the SSH password")
	flag.DurationVar(&f.Timeout, "timeout", 0, "Overall timeout for the run (default none)")
	flag.StringVar(&f.ConfigPath, "config", "", "Path to an INI profile")
	flag.StringVar(&f.LogFileName, "log", "", "Append diagnostic logs to this file instead of stderr")
	flag.StringVar(&f.Python, "python", "", "Python interpreter to use (default: active environment)")
	flag.StringVar(&f.Requirements, "requirements", "", "Path to the requirements file (default requirements.txt)")
	flag.StringVar(&f.Username, "username", "", "Username for SSH connections")
	flag.Var(&f.Hostnames, "hostname", "Host to set up; repeatable (default localhost)")
	flag.Parse()
	return f
}

func main() {
	os.Exit(run(parseFlags()))
}

func run(f *flags) int {
	log, err := logger.New(f.Debug, f.LogFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := effectiveConfig(f)
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		return 1
	}

	password, keyPass, err := readPasswords(f)
	if err != nil {
		log.Errorf("Failed to read credentials: %v", err)
		return 1
	}

	ctx, cancel := runContext(cfg)
	defer cancel()

	var failures *multierror.Error
	exitCode := 0
	for _, hostname := range hostList(f, cfg) {
		if err := setupHost(ctx, f, cfg, log, hostname, password, keyPass); err != nil {
			if exitCode == 0 {
				exitCode = runner.ExitCode(err)
			}
			failures = multierror.Append(failures, fmt.Errorf("host %s: %w", hostname, err))
		}
	}

	if failures != nil {
		for _, err := range failures.Errors {
			log.Error(err)
		}
		return exitCode
	}
	return 0
}

// runContext derives the run's context. A plain run has no deadline; the
// installer takes as long as it takes. Only an explicit timeout from a flag
// or profile adds one.
func runContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(context.Background(), cfg.Timeout)
	}
	return context.WithCancel(context.Background())
}

// effectiveConfig loads the INI profile (if any) and applies flag overrides.
func effectiveConfig(f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		loaded, err := config.Load(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.Python != "" {
		cfg.Python = f.Python
	}
	if f.Requirements != "" {
		cfg.Requirements = f.Requirements
	}
	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
	return cfg, nil
}

// hostList combines profile host groups with -hostname flags. With neither,
// the setup runs against the local machine.
func hostList(f *flags, cfg *config.Config) []string {
	hosts := append(cfg.Hosts(), f.Hostnames...)
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	return hosts
}

func readPasswords(f *flags) (password, keyPass string, err error) {
	if f.PasswordPrompt {
		fmt.Print("Enter the password: ")
		passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", "", err
		}
		password = string(passwordBytes)
		fmt.Println()
	}
	if f.KeyPassPrompt {
		fmt.Print("Enter the key passphrase: ")
		keyPassBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", "", err
		}
		keyPass = string(keyPassBytes)
		fmt.Println()
	}
	return password, keyPass, nil
}

func setupHost(ctx context.Context, f *flags, cfg *config.Config, log *logrus.Logger, hostname, password, keyPass string) error {
	hostLog := log.WithField("host", hostname)

	python, err := resolvePython(cfg, hostname)
	if err != nil {
		return err
	}
	hostLog.Debugf("Using interpreter %s", python)

	manager := &commandmanager.UnixCommandManager{
		Hostname:      hostname,
		User:          f.Username,
		Password:      password,
		KeyPassphrase: keyPass,
		SSHDialer:     commandmanager.RealSSHDialer{},
	}
	var pip packagemanager.PackageManager = &packagemanager.PipManager{Python: python, CommandManager: manager}

	if f.ListPackages || f.ListOutdated {
		manager.Stderr = os.Stderr
		return printPackages(ctx, f, pip)
	}

	// Pass the installer's own output through, as a shell would.
	manager.Stdout = os.Stdout
	manager.Stderr = os.Stderr

	r := runner.Runner{
		Out: os.Stdout,
		Steps: []runner.Step{
			{
				Name:     "upgrade-packaging-tools",
				Progress: "Upgrading pip, setuptools and wheel...",
				Action:   pip.UpgradePackagingTools,
			},
			{
				Name:     "install-requirements",
				Progress: fmt.Sprintf("Installing dependencies from %s...", cfg.Requirements),
				Action: func(ctx context.Context) error {
					return pip.InstallRequirements(ctx, cfg.Requirements)
				},
			},
		},
		SuccessMessage: "Setup complete!",
	}

	start := time.Now()
	if err := r.Run(ctx); err != nil {
		return err
	}
	hostLog.Debugf("Setup finished in %s", time.Since(start))
	return nil
}

// resolvePython picks the interpreter for a host. Remote hosts cannot be
// probed, so they get the configured interpreter or plain python3.
func resolvePython(cfg *config.Config, hostname string) (string, error) {
	if hostname == "localhost" || hostname == "127.0.0.1" {
		return interpreter.Resolve(cfg.Python)
	}
	if cfg.Python != "" {
		return cfg.Python, nil
	}
	return "python3", nil
}

func printPackages(ctx context.Context, f *flags, pip packagemanager.PackageManager) error {
	if f.ListPackages {
		packages, err := pip.ListPackages(ctx)
		if err != nil {
			return fmt.Errorf("failed to list packages: %w", err)
		}
		fmt.Println("Packages:")
		for _, pkg := range packages {
			fmt.Println(pkg)
		}
	}
	if f.ListOutdated {
		outdated, err := pip.CheckOutdated(ctx)
		if err != nil {
			return fmt.Errorf("failed to check outdated packages: %w", err)
		}
		fmt.Println("Outdated packages:")
		for _, pkg := range outdated {
			fmt.Println(pkg)
		}
	}
	return nil
}
