package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Entry is one commit of the publish history.
type Entry struct {
	Hash    string
	Author  string
	When    time.Time
	Message string
}

// History returns up to limit commits reachable from HEAD, newest first.
// A repository without commits has an empty history.
func History(ctx context.Context, repoDir string, limit int) ([]Entry, error) {
	repo, err := git.PlainOpenWithOptions(repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	iter, err := repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(entries) >= limit {
			return storer.ErrStop
		}
		entries = append(entries, Entry{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			When:    c.Author.When,
			Message: strings.TrimSpace(c.Message),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

var historyPolicy = bluemonday.UGCPolicy()

// RenderHistory formats entries as Markdown, converts it with goldmark and
// sanitizes the result: commit messages carry untrusted request text.
func RenderHistory(entries []Entry) (string, error) {
	var md strings.Builder
	md.WriteString("# Publish history\n\n")
	if len(entries) == 0 {
		md.WriteString("_No commits yet._\n")
	}
	for _, e := range entries {
		short := e.Hash
		if len(short) > 7 {
			short = short[:7]
		}
		fmt.Fprintf(&md, "- `%s` %s · **%s**: %s\n",
			short, e.When.Format("2006-01-02 15:04"), escapeMarkdown(e.Author), escapeMarkdown(firstLine(e.Message)))
	}

	html, err := mdToHTML(md.String())
	if err != nil {
		return "", err
	}
	return historyPolicy.Sanitize(html), nil
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
