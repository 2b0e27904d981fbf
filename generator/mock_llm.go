package generator

import (
	"context"
	"errors"
	"strings"
)

// MockLLM is a local stand-in that never calls a model: it returns the
// current document with the request recorded as an HTML comment.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	doc, ok := fencedDocument(prompt.User)
	if !ok {
		return "", errors.New("mock llm: prompt carries no document")
	}
	request := strings.ReplaceAll(requestLine(prompt.User), "--", "- -")

	var sb strings.Builder
	sb.WriteString(doc)
	if !strings.HasSuffix(doc, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("<!-- requested: ")
	sb.WriteString(request)
	sb.WriteString(" -->\n")
	return sb.String(), nil
}

func fencedDocument(user string) (string, bool) {
	const open = "```html\n"
	start := strings.Index(user, open)
	if start < 0 {
		return "", false
	}
	rest := user[start+len(open):]
	end := strings.Index(rest, "```\n\nHere is the user's request")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func requestLine(user string) string {
	const marker = "Here is the user's request: "
	i := strings.Index(user, marker)
	if i < 0 {
		return ""
	}
	line := user[i+len(marker):]
	if j := strings.IndexByte(line, '\n'); j >= 0 {
		line = line[:j]
	}
	return line
}
