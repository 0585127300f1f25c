// ABOUTME: Server configuration loaded from QUERYFLOW_* environment variables.
// ABOUTME: Enforces security constraint: remote access requires auth token.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ConfigError represents configuration validation errors.
var (
	ErrRemoteWithoutToken = errors.New(
		"QUERYFLOW_ALLOW_REMOTE is true but QUERYFLOW_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"QUERYFLOW_BIND is a non-loopback address but QUERYFLOW_ALLOW_REMOTE is not true; set QUERYFLOW_ALLOW_REMOTE=true and QUERYFLOW_AUTH_TOKEN to allow remote access",
	)
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Home        string // Data directory (QUERYFLOW_HOME, default: ~/.queryflow)
	Bind        string // Socket address (QUERYFLOW_BIND, default: 127.0.0.1:8420)
	AllowRemote bool   // Allow non-loopback connections (QUERYFLOW_ALLOW_REMOTE, default: false)
	AuthToken   string // Bearer token for API auth (QUERYFLOW_AUTH_TOKEN, optional)
	Provider    string // LLM provider (QUERYFLOW_PROVIDER, default: gemini)
	Model       string // LLM model name (QUERYFLOW_MODEL, optional)
	SubmitURL   string // Visualizer raw-query endpoint (QUERYFLOW_SUBMIT_URL, optional)
	SubmitToken string // Visualizer bearer token (QUERYFLOW_SUBMIT_TOKEN, optional)
	Vocabulary  string // Vocabulary YAML override path (QUERYFLOW_VOCABULARY, optional)
	MaxSteps    int    // Pipeline step limit (QUERYFLOW_MAX_STEPS, 0 = engine default)
}

// ConfigFromEnv loads configuration from QUERYFLOW_* environment variables
// with sensible defaults.
func ConfigFromEnv() (*Config, error) {
	home := envOrDefault("QUERYFLOW_HOME", "")
	if home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "/tmp"
		}
		home = filepath.Join(homeDir, ".queryflow")
	}

	bind := envOrDefault("QUERYFLOW_BIND", "127.0.0.1:8420")

	allowRemote := false
	if v := os.Getenv("QUERYFLOW_ALLOW_REMOTE"); v == "true" || v == "1" || v == "yes" {
		allowRemote = true
	}

	authToken := os.Getenv("QUERYFLOW_AUTH_TOKEN")

	maxSteps := 0
	if v := os.Getenv("QUERYFLOW_MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("QUERYFLOW_MAX_STEPS must be a non-negative integer, got %q", v)
		}
		maxSteps = n
	}

	// Security: remote access requires auth token
	if allowRemote && authToken == "" {
		return nil, ErrRemoteWithoutToken
	}

	// Security: refuse non-loopback binds unless explicitly opting into remote
	// access. Checks both IP literals and hostnames; only 127.0.0.0/8, ::1,
	// and "localhost" are considered safe.
	if !allowRemote {
		if host, _, err := net.SplitHostPort(bind); err == nil && host != "" {
			ip := net.ParseIP(host)
			switch {
			case ip != nil && ip.IsLoopback():
				// Safe: 127.x.x.x or ::1
			case ip != nil:
				// Non-loopback IP literal (e.g. 0.0.0.0, 192.168.x.x)
				return nil, fmt.Errorf("%w: QUERYFLOW_BIND=%s", ErrNonLoopbackBind, bind)
			case host == "localhost":
				// Safe: conventional loopback hostname
			default:
				// Non-localhost hostname (e.g. myhost, example.com)
				return nil, fmt.Errorf("%w: QUERYFLOW_BIND=%s", ErrNonLoopbackBind, bind)
			}
		}
	}

	return &Config{
		Home:        home,
		Bind:        bind,
		AllowRemote: allowRemote,
		AuthToken:   authToken,
		Provider:    envOrDefault("QUERYFLOW_PROVIDER", "gemini"),
		Model:       os.Getenv("QUERYFLOW_MODEL"),
		SubmitURL:   os.Getenv("QUERYFLOW_SUBMIT_URL"),
		SubmitToken: os.Getenv("QUERYFLOW_SUBMIT_TOKEN"),
		Vocabulary:  os.Getenv("QUERYFLOW_VOCABULARY"),
		MaxSteps:    maxSteps,
	}, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
