// Package publisher stages, commits and pushes the edited document.
//
// Two backends exist: GitCLI runs the git binary one command at a time with
// argument lists, GoGit does the same work in-process with go-git. Neither
// ever hands the commit message to a shell.
package publisher

import (
	"context"
	"fmt"
)

// Publisher records one file change in version control.
type Publisher interface {
	Publish(ctx context.Context, file, message string) (Result, error)
}

// Result carries what the publish steps printed on standard output.
type Result struct {
	Stdout string
}

// StepError reports the step that failed along with its diagnostic output.
type StepError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("git %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Options is shared by both backends.
type Options struct {
	RepoDir     string
	Remote      string
	Branch      string
	Push        bool
	AuthorName  string
	AuthorEmail string
}
