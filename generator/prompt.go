package generator

import (
	"fmt"
	"strings"
)

// Prompt is the message pair sent to the model.
type Prompt struct {
	System string
	User   string
}

const rewriteSystem = "You are an expert HTML web developer. A user wants to modify their website."

// BuildRewritePrompt embeds the full current document and the change request
// and asks for a complete replacement document.
func BuildRewritePrompt(current, request string) Prompt {
	var sb strings.Builder
	sb.WriteString("Here is the current content of their 'index.html' file:\n\n")
	sb.WriteString("```html\n")
	sb.WriteString(current)
	if !strings.HasSuffix(current, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")
	sb.WriteString(fmt.Sprintf("Here is the user's request: %q\n\n", request))
	sb.WriteString("Your task is to return the **new, full** 'index.html' content with the requested change.\n")
	sb.WriteString("Respond with **ONLY** the raw HTML code. Do not include ```html, markdown, or any other explanations.\n")

	return Prompt{
		System: rewriteSystem,
		User:   sb.String(),
	}
}
