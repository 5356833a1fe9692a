// Package runner executes an ordered list of setup steps with fail-fast
// semantics: the first failing step terminates the whole sequence and its
// child exit status becomes the run's exit status.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Step is one unit of the setup sequence. Progress is printed to the runner's
// writer before Action executes.
type Step struct {
	Name     string
	Progress string
	Action   func(ctx context.Context) error
}

// StepError identifies which step of a run failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner runs steps in order and prints the success message only if every
// step succeeded. There is no retry and no rollback.
type Runner struct {
	Out            io.Writer
	Steps          []Step
	SuccessMessage string
}

func (r *Runner) Run(ctx context.Context) error {
	for _, step := range r.Steps {
		if step.Progress != "" {
			fmt.Fprintln(r.Out, step.Progress)
		}
		if err := step.Action(ctx); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}
	}
	if r.SuccessMessage != "" {
		fmt.Fprintln(r.Out, r.SuccessMessage)
	}
	return nil
}

// ExitCoder is implemented by errors that carry a child process exit status.
type ExitCoder interface {
	ExitStatus() int
}

// ExitCode maps a run error to the process exit status, propagating the
// failing child's exit code when it is known.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) && coder.ExitStatus() > 0 {
		return coder.ExitStatus()
	}
	return 1
}
