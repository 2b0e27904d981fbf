package generator

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var (
	ErrEmptyDocument = errors.New("model returned an empty document")
	ErrFencedOutput  = errors.New("model wrapped the document in a markdown code fence")
	ErrNoMarkup      = errors.New("model output contains no HTML elements")
)

// CheckMarkup rejects model output that cannot be a replacement document.
// It never modifies the text.
func CheckMarkup(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyDocument
	}
	if strings.HasPrefix(trimmed, "```") {
		return ErrFencedOutput
	}

	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return err
			}
			return ErrNoMarkup
		case html.StartTagToken, html.SelfClosingTagToken:
			return nil
		}
	}
}
