package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepilot/document"
	"sitepilot/generator"
	"sitepilot/publisher"
	"sitepilot/updater"
)

type cannedLLM struct {
	reply string
	err   error
	calls atomic.Int32
}

func (c *cannedLLM) Complete(context.Context, generator.Prompt) (string, error) {
	c.calls.Add(1)
	return c.reply, c.err
}

type cannedPublisher struct {
	mu       sync.Mutex
	out      string
	err      error
	messages []string
}

func (c *cannedPublisher) Publish(_ context.Context, _, message string) (publisher.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return publisher.Result{Stdout: c.out}, c.err
}

func (c *cannedPublisher) published() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

type fixture struct {
	path string
	llm  *cannedLLM
	pub  *cannedPublisher
	srv  *httptest.Server
}

func newFixture(t *testing.T, initial *string) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	if initial != nil {
		require.NoError(t, os.WriteFile(path, []byte(*initial), 0o644))
	}
	f := &fixture{path: path, llm: &cannedLLM{}, pub: &cannedPublisher{}}

	store := document.New(path)
	agent, err := generator.NewAgent(f.llm, true)
	require.NoError(t, err)
	svc, err := updater.New(store, agent, f.pub, updater.Options{File: "index.html"})
	require.NoError(t, err)
	history := func(context.Context) ([]publisher.Entry, error) {
		return []publisher.Entry{{Hash: "abcdef0123", Author: "AI Agent", When: time.Now(), Message: "feat: <b>x</b>"}}, nil
	}
	s, err := New(svc, store, history)
	require.NoError(t, err)

	f.srv = httptest.NewServer(s.Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) post(t *testing.T, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/update-feature", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func (f *fixture) content(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return string(data)
}

func ptr(s string) *string { return &s }

func TestUpdateFeature(t *testing.T) {
	t.Run("should rewrite, publish and answer 200", func(t *testing.T) {
		// given
		f := newFixture(t, ptr("<html><title>Old</title></html>"))
		f.llm.reply = "<html><title>Hello</title></html>"
		f.pub.out = "[main 1a2b3c4] feat: AI implemented request\n"

		// when
		status, body := f.post(t, `{"prompt":"change the title to Hello"}`)

		// then
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{
			"message": "Feature implemented and pushed: change the title to Hello",
			"git_output": "[main 1a2b3c4] feat: AI implemented request\n"
		}`, body)
		assert.Equal(t, "<html><title>Hello</title></html>", f.content(t))
	})

	t.Run("should answer 400 for an empty prompt", func(t *testing.T) {
		// given
		f := newFixture(t, ptr("<p>keep</p>"))

		for _, payload := range []string{`{"prompt":""}`, `{}`, `not json`} {
			// when
			status, body := f.post(t, payload)

			// then
			assert.Equal(t, http.StatusBadRequest, status, payload)
			assert.Equal(t, `{"error":"Prompt is required"}`, strings.TrimSpace(body))
		}
		assert.Equal(t, "<p>keep</p>", f.content(t))
		assert.Zero(t, f.llm.calls.Load())
	})

	t.Run("should answer 500 without calling the model when the document is missing", func(t *testing.T) {
		// given
		f := newFixture(t, nil)
		f.llm.reply = "<p>new</p>"

		// when
		status, body := f.post(t, `{"prompt":"anything"}`)

		// then
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, body, `"error":"Server error"`)
		assert.Contains(t, body, "no such file")
		assert.Zero(t, f.llm.calls.Load())
	})

	t.Run("should answer 500 with the stderr when publishing fails", func(t *testing.T) {
		// given
		f := newFixture(t, ptr("<p>old</p>"))
		f.llm.reply = "<p>new</p>"
		f.pub.err = &publisher.StepError{Step: "push", Stderr: "fatal: Authentication failed", Err: errors.New("exit status 128")}

		// when
		status, body := f.post(t, `{"prompt":"anything"}`)

		// then
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.JSONEq(t, `{"error":"File was updated, but Git push failed.","details":"fatal: Authentication failed"}`, body)
		assert.Equal(t, "<p>new</p>", f.content(t))
	})

	t.Run("should answer 500 when the model fails", func(t *testing.T) {
		f := newFixture(t, ptr("<p>old</p>"))
		f.llm.err = errors.New("429 quota exceeded")

		status, body := f.post(t, `{"prompt":"anything"}`)

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, body, "429 quota exceeded")
		assert.Equal(t, "<p>old</p>", f.content(t))
		assert.Empty(t, f.pub.published())
	})

	t.Run("should hand hostile prompts to the publisher untouched", func(t *testing.T) {
		f := newFixture(t, ptr("<p>old</p>"))
		f.llm.reply = "<p>new</p>"

		status, _ := f.post(t, `{"prompt":"; rm -rf / ;"}`)

		assert.Equal(t, http.StatusOK, status)
		messages := f.pub.published()
		require.Len(t, messages, 1)
		assert.Equal(t, `feat: AI implemented request - "; rm -rf / ;"`, messages[0])
	})

	t.Run("should reject GET", func(t *testing.T) {
		f := newFixture(t, ptr("<p>old</p>"))

		resp, err := http.Get(f.srv.URL + "/update-feature")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestPages(t *testing.T) {
	f := newFixture(t, ptr("<html><title>Live</title></html>"))

	get := func(path string) (*http.Response, string) {
		resp, err := http.Get(f.srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(data)
	}

	t.Run("should serve the control page at /", func(t *testing.T) {
		resp, body := get("/")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "/update-feature")
	})

	t.Run("should serve the live document at /index", func(t *testing.T) {
		resp, body := get("/index")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "<html><title>Live</title></html>", body)
	})

	t.Run("should render sanitized history", func(t *testing.T) {
		resp, body := get("/history")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Publish history")
		assert.Contains(t, body, "abcdef0")
		assert.NotContains(t, body, "<b>x</b>")
	})

	t.Run("should report health", func(t *testing.T) {
		resp, body := get("/healthz")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, body)
	})
}
