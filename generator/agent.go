package generator

import (
	"context"
	"errors"
)

// Agent turns a change request into a replacement document.
type Agent struct {
	llm            LLMClient
	validateMarkup bool
}

func NewAgent(llm LLMClient, validateMarkup bool) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, validateMarkup: validateMarkup}, nil
}

// Rewrite asks the model for the full new document. The response text is
// returned as-is; when markup validation is on, unusable output is rejected
// instead of repaired.
func (a *Agent) Rewrite(ctx context.Context, current, request string) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildRewritePrompt(current, request))
	if err != nil {
		return "", err
	}
	if a.validateMarkup {
		if err := CheckMarkup(raw); err != nil {
			return "", err
		}
	}
	return raw, nil
}
