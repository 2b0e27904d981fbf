package publisher

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// Runner executes one program with an explicit argument list.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// GitCLI publishes through the git binary.
type GitCLI struct {
	opts   Options
	runner Runner
}

func NewGitCLI(opts Options, runner Runner) *GitCLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.RepoDir == "" {
		opts.RepoDir = "."
	}
	return &GitCLI{opts: opts, runner: runner}
}

type gitStep struct {
	name string
	args []string
}

func (g *GitCLI) steps(file, message string) []gitStep {
	var steps []gitStep
	if g.opts.AuthorEmail != "" {
		steps = append(steps, gitStep{"config", []string{"config", "user.email", g.opts.AuthorEmail}})
	}
	if g.opts.AuthorName != "" {
		steps = append(steps, gitStep{"config", []string{"config", "user.name", g.opts.AuthorName}})
	}
	steps = append(steps,
		gitStep{"add", []string{"add", "--", file}},
		gitStep{"commit", []string{"commit", "-m", message}},
	)
	if g.opts.Push {
		steps = append(steps, gitStep{"push", []string{"push", g.opts.Remote, g.opts.Branch}})
	}
	return steps
}

// Publish runs each step in order and stops at the first failure.
func (g *GitCLI) Publish(ctx context.Context, file, message string) (Result, error) {
	var out strings.Builder
	for _, step := range g.steps(file, message) {
		logger.Debugf("running git %s", step.args[0])
		stdout, stderr, err := g.runner.Run(ctx, g.opts.RepoDir, "git", step.args...)
		out.WriteString(stdout)
		if err != nil {
			return Result{Stdout: out.String()}, &StepError{Step: step.name, Stderr: stderr, Err: err}
		}
	}
	return Result{Stdout: out.String()}, nil
}
