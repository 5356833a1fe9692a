package commandmanager

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHDialer abstracts ssh.Dial so remote execution can be tested without a server.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

// RealSSHDialer dials through the crypto/ssh package.
type RealSSHDialer struct{}

func (RealSSHDialer) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	config.Timeout = timeout
	return ssh.Dial(network, addr, config)
}

// UnixCommandManager runs commands on the host named by Hostname. Commands for
// localhost run in a child process; anything else goes over SSH.
//
// When Stdout or Stderr is set, the child's output is streamed there while
// still being captured in the CommandResult. Package installers write their
// diagnostics to stderr, and the caller is expected to pass that through
// unmodified.
type UnixCommandManager struct {
	Hostname      string
	User          string
	Password      string
	KeyPassphrase string
	SSHDialer     SSHDialer
	Stdout        io.Writer
	Stderr        io.Writer
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.isLocal() {
		return u.runLocal(ctx, config)
	}
	return u.runRemote(ctx, config)
}

func (u *UnixCommandManager) runLocal(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.Dir = config.Dir
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = u.teeWriter(u.Stdout, &stdout)
	cmd.Stderr = u.teeWriter(u.Stderr, &stderr)

	err := cmd.Run()

	result := CommandResult{
		Command:   config.Command,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}
	return result, err
}

func (u *UnixCommandManager) runRemote(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.SSHDialer == nil {
		return CommandResult{}, errors.New("SSH dialer is not initialized")
	}

	sshConfig, err := u.sshClientConfig()
	if err != nil {
		return CommandResult{}, err
	}

	dialTimeout := 15 * time.Minute
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	}

	client, err := u.SSHDialer.Dial("tcp", u.Hostname+":22", sshConfig, dialTimeout)
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, err
	}
	defer session.Close()

	cmdStr := buildRemoteCommand(config)

	var stdout, stderr strings.Builder
	session.Stdout = u.teeWriter(u.Stdout, &stdout)
	session.Stderr = u.teeWriter(u.Stderr, &stderr)

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmdStr)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}

	result := CommandResult{
		Command:   cmdStr,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}
	return result, err
}

func (u *UnixCommandManager) sshClientConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if u.Password != "" {
		authMethod = ssh.Password(u.Password)
	} else {
		var keyManager SSHKeyManager
		if u.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		} else {
			keyManager = AgentSSHKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(u.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            u.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

// buildRemoteCommand renders a CommandConfig as a single shell command line.
// Arguments and environment values are quoted so paths with spaces survive
// the remote shell's word splitting.
func buildRemoteCommand(config CommandConfig) string {
	cmdStr := shellQuote(config.Command)
	for _, arg := range config.Args {
		cmdStr += " " + shellQuote(arg)
	}
	for _, kv := range config.Env {
		name, value, _ := strings.Cut(kv, "=")
		cmdStr = name + "=" + shellQuote(value) + " " + cmdStr
	}
	return cmdStr
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()*?[]#~`!") {
		return s
	}
	return strconv.Quote(s)
}

func (u *UnixCommandManager) teeWriter(stream io.Writer, capture io.Writer) io.Writer {
	if stream == nil {
		return capture
	}
	return io.MultiWriter(stream, capture)
}

func (u *UnixCommandManager) isLocal() bool {
	return u.Hostname == "" || u.Hostname == "localhost" || u.Hostname == "127.0.0.1"
}

func getExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var sshErr *ssh.ExitError
	if errors.As(err, &sshErr) {
		return sshErr.ExitStatus()
	}
	// The process never ran or was killed by a signal.
	return -1
}
