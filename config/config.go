package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr         = ":3000"
	DefaultDocumentPath = "index.html"
	DefaultGeminiModel  = "gemini-1.5-flash"
	DefaultAITimeout    = 60 * time.Second
	DefaultHistoryLimit = 20

	BackendGitCLI = "git"
	BackendGoGit  = "go-git"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	ServerAddr     string    `json:"server_addr" yaml:"server_addr"`
	DocumentPath   string    `json:"document_path" yaml:"document_path"`
	RepoDir        string    `json:"repo_dir" yaml:"repo_dir"`
	LLM            LLMConfig `json:"llm" yaml:"llm"`
	Git            GitConfig `json:"git" yaml:"git"`
	ValidateMarkup bool      `json:"validate_markup" yaml:"validate_markup"`
	AITimeout      Duration  `json:"ai_timeout" yaml:"ai_timeout"`
	PublishTimeout Duration  `json:"publish_timeout" yaml:"publish_timeout"`
	HistoryLimit   int       `json:"history_limit" yaml:"history_limit"`
}

// LLMConfig selects and authenticates the model used to rewrite the document.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// GitConfig describes where and how published changes are committed.
type GitConfig struct {
	Backend     string `json:"backend" yaml:"backend"`
	Remote      string `json:"remote" yaml:"remote"`
	Branch      string `json:"branch" yaml:"branch"`
	Push        bool   `json:"push" yaml:"push"`
	AuthorName  string `json:"author_name" yaml:"author_name"`
	AuthorEmail string `json:"author_email" yaml:"author_email"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ServerAddr:   DefaultAddr,
		DocumentPath: DefaultDocumentPath,
		RepoDir:      ".",
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    DefaultGeminiModel,
		},
		Git: GitConfig{
			Backend:     BackendGitCLI,
			Remote:      "origin",
			Branch:      "main",
			Push:        true,
			AuthorName:  "AI Agent",
			AuthorEmail: "ai-agent@demo.com",
		},
		ValidateMarkup: true,
		AITimeout:      Duration(DefaultAITimeout),
		HistoryLimit:   DefaultHistoryLimit,
	}
}

// LoadConfig reads the file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			logger.Debugf("config %s not found, using defaults", path)
		default:
			return Config{}, err
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	keyVar := "GEMINI_API_KEY"
	if c.LLM.Provider != "gemini" {
		keyVar = "OPENAI_API_KEY"
	}
	if v, ok := lookup(keyVar); ok && v != "" {
		c.LLM.APIKey = v
	}
	if v, ok := lookup("SITEPILOT_ADDR"); ok && v != "" {
		c.ServerAddr = v
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.DocumentPath == "" {
		return errors.New("document_path is required")
	}
	if c.ServerAddr == "" {
		return errors.New("server_addr is required")
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "mock":
	case "deepseek":
		// DeepSeek is reached through its OpenAI-compatible endpoint.
		if c.LLM.BaseURL == "" {
			return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	case "":
		return errors.New("llm.provider is required")
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	switch c.Git.Backend {
	case BackendGitCLI, BackendGoGit:
	default:
		return fmt.Errorf("git backend %q not supported", c.Git.Backend)
	}
	if c.Git.Push && (c.Git.Remote == "" || c.Git.Branch == "") {
		return errors.New("git.remote and git.branch are required when git.push is enabled")
	}
	if c.AITimeout < 0 || c.PublishTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.HistoryLimit < 0 {
		return errors.New("history_limit must not be negative")
	}
	return nil
}

// DocumentFile returns the document path relative to RepoDir, in the slash
// form both publish backends stage.
func (c Config) DocumentFile() string {
	doc, err := filepath.Abs(c.DocumentPath)
	if err != nil {
		return c.DocumentPath
	}
	repo, err := filepath.Abs(c.RepoDir)
	if err != nil {
		return c.DocumentPath
	}
	rel, err := filepath.Rel(repo, doc)
	if err != nil || strings.HasPrefix(rel, "..") {
		return c.DocumentPath
	}
	return filepath.ToSlash(rel)
}
