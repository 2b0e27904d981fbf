// Package updater runs one change request through read, transform, persist
// and publish.
package updater

import (
	"context"
	"errors"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"sitepilot/publisher"
)

const PromptRequired = "Prompt is required"

// DocumentStore is the persisted document.
type DocumentStore interface {
	Read() (string, error)
	Write(text string) error
}

// Transformer produces a replacement document for a change request.
type Transformer interface {
	Rewrite(ctx context.Context, current, request string) (string, error)
}

// Options tune a Service.
type Options struct {
	// File is the document path handed to the publisher.
	File           string
	AITimeout      time.Duration
	PublishTimeout time.Duration
}

// Result is the outcome of one successful pass.
type Result struct {
	Message   string
	Document  string
	GitOutput string
}

// Service applies change requests one at a time: the lock is held across the
// whole read-transform-write-publish sequence.
type Service struct {
	store     DocumentStore
	transform Transformer
	publisher publisher.Publisher
	opts      Options
	lock      *semaphore.Weighted
}

func New(store DocumentStore, transform Transformer, pub publisher.Publisher, opts Options) (*Service, error) {
	if store == nil || transform == nil || pub == nil {
		return nil, errors.New("document store, transformer and publisher are required")
	}
	if opts.File == "" {
		return nil, errors.New("document file is required")
	}
	return &Service{
		store:     store,
		transform: transform,
		publisher: pub,
		opts:      opts,
		lock:      semaphore.NewWeighted(1),
	}, nil
}

// CommitMessage labels the commit with the raw request text. The text is
// not escaped; publishers must pass it as a single argument.
func CommitMessage(prompt string) string {
	return `feat: AI implemented request - "` + prompt + `"`
}

// Apply runs a single pass. Nothing is retried and a publish failure does
// not roll the document back.
func (s *Service) Apply(ctx context.Context, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, &ValidationError{Message: PromptRequired}
	}
	log := logger.WithField("prompt", prompt)

	if err := s.lock.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer s.lock.Release(1)

	// A started pass runs to completion; only the configured timeouts bound it.
	ctx = context.WithoutCancel(ctx)

	log.Infof("Reading file: %s", s.opts.File)
	current, err := s.store.Read()
	if err != nil {
		return Result{}, &IOError{Op: "read", Path: s.opts.File, Err: err}
	}

	log.Info("Sending prompt to AI...")
	aiCtx, cancel := withTimeout(ctx, s.opts.AITimeout)
	next, err := s.transform.Rewrite(aiCtx, current, prompt)
	cancel()
	if err != nil {
		return Result{}, &TransformError{Err: err}
	}
	log.WithField("bytes", len(next)).Info("AI generated new HTML.")

	log.Infof("Writing new content to %s", s.opts.File)
	if err := s.store.Write(next); err != nil {
		return Result{}, &IOError{Op: "write", Path: s.opts.File, Err: err}
	}

	log.Info("Running git commands...")
	pubCtx, cancel := withTimeout(ctx, s.opts.PublishTimeout)
	res, err := s.publisher.Publish(pubCtx, s.opts.File, CommitMessage(prompt))
	cancel()
	if err != nil {
		pubErr := &PublishError{Step: "publish", Err: err}
		var stepErr *publisher.StepError
		if errors.As(err, &stepErr) {
			pubErr.Step = stepErr.Step
			pubErr.Stderr = stepErr.Stderr
		}
		return Result{Document: next, GitOutput: res.Stdout}, pubErr
	}
	log.Infof("Git push successful: %s", strings.TrimSpace(res.Stdout))

	return Result{
		Message:   "Feature implemented and pushed: " + prompt,
		Document:  next,
		GitOutput: res.Stdout,
	}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
