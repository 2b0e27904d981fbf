package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// GoGit publishes in-process with go-git, so no git binary is needed.
type GoGit struct {
	opts Options
	auth transport.AuthMethod
}

func NewGoGit(opts Options, auth transport.AuthMethod) *GoGit {
	if opts.RepoDir == "" {
		opts.RepoDir = "."
	}
	return &GoGit{opts: opts, auth: auth}
}

func (g *GoGit) Publish(ctx context.Context, file, message string) (Result, error) {
	repo, err := git.PlainOpenWithOptions(g.opts.RepoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Result{}, &StepError{Step: "open", Err: err}
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, &StepError{Step: "open", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, &StepError{Step: "add", Err: err}
	}
	if _, err := wt.Add(file); err != nil {
		return Result{}, &StepError{Step: "add", Err: err}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.opts.AuthorName,
			Email: g.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return Result{}, &StepError{Step: "commit", Err: err}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "[%s %s] %s\n", g.opts.Branch, hash.String()[:7], firstLine(message))

	if !g.opts.Push {
		return Result{Stdout: out.String()}, nil
	}

	var progress bytes.Buffer
	ref := fmt.Sprintf("refs/heads/%s:refs/heads/%s", g.opts.Branch, g.opts.Branch)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: g.opts.Remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref)},
		Auth:       g.auth,
		Progress:   &progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return Result{Stdout: out.String()}, &StepError{Step: "push", Stderr: progress.String(), Err: err}
	}
	out.WriteString(progress.String())
	return Result{Stdout: out.String()}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
