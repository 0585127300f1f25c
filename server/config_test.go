// ABOUTME: Tests for environment-driven server configuration and its security constraints.
// ABOUTME: Non-loopback binds must be refused unless remote access plus a token are configured.
package server

import (
	"errors"
	"testing"
)

// clearQueryflowEnv resets every QUERYFLOW_* variable the loader reads.
func clearQueryflowEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QUERYFLOW_HOME", "QUERYFLOW_BIND", "QUERYFLOW_ALLOW_REMOTE",
		"QUERYFLOW_AUTH_TOKEN", "QUERYFLOW_PROVIDER", "QUERYFLOW_MODEL",
		"QUERYFLOW_SUBMIT_URL", "QUERYFLOW_SUBMIT_TOKEN", "QUERYFLOW_VOCABULARY",
		"QUERYFLOW_MAX_STEPS",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigDefaults(t *testing.T) {
	clearQueryflowEnv(t)

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Bind != "127.0.0.1:8420" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.AllowRemote {
		t.Error("AllowRemote should default false")
	}
	if cfg.Home == "" {
		t.Error("Home should default under the user home dir")
	}
	if cfg.MaxSteps != 0 {
		t.Errorf("MaxSteps = %d, want 0", cfg.MaxSteps)
	}
}

func TestConfigRemoteRequiresToken(t *testing.T) {
	clearQueryflowEnv(t)
	t.Setenv("QUERYFLOW_ALLOW_REMOTE", "true")

	_, err := ConfigFromEnv()
	if !errors.Is(err, ErrRemoteWithoutToken) {
		t.Errorf("err = %v, want ErrRemoteWithoutToken", err)
	}
}

func TestConfigRejectsNonLoopbackBind(t *testing.T) {
	tests := []struct {
		name string
		bind string
		ok   bool
	}{
		{"loopback v4", "127.0.0.1:9000", true},
		{"loopback v6", "[::1]:9000", true},
		{"localhost", "localhost:9000", true},
		{"all interfaces", "0.0.0.0:9000", false},
		{"private address", "192.168.1.10:9000", false},
		{"hostname", "example.com:9000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearQueryflowEnv(t)
			t.Setenv("QUERYFLOW_BIND", tt.bind)

			_, err := ConfigFromEnv()
			if tt.ok && err != nil {
				t.Errorf("ConfigFromEnv(%q): %v", tt.bind, err)
			}
			if !tt.ok && !errors.Is(err, ErrNonLoopbackBind) {
				t.Errorf("ConfigFromEnv(%q) err = %v, want ErrNonLoopbackBind", tt.bind, err)
			}
		})
	}
}

func TestConfigRemoteBindWithToken(t *testing.T) {
	clearQueryflowEnv(t)
	t.Setenv("QUERYFLOW_BIND", "0.0.0.0:9000")
	t.Setenv("QUERYFLOW_ALLOW_REMOTE", "true")
	t.Setenv("QUERYFLOW_AUTH_TOKEN", "secret")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if !cfg.AllowRemote || cfg.AuthToken != "secret" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConfigMaxSteps(t *testing.T) {
	clearQueryflowEnv(t)
	t.Setenv("QUERYFLOW_MAX_STEPS", "12")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.MaxSteps != 12 {
		t.Errorf("MaxSteps = %d, want 12", cfg.MaxSteps)
	}
}

func TestConfigInvalidMaxSteps(t *testing.T) {
	clearQueryflowEnv(t)
	t.Setenv("QUERYFLOW_MAX_STEPS", "lots")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error for non-numeric QUERYFLOW_MAX_STEPS")
	}
}
