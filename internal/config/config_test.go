// ABOUTME: Tests for environment-driven configuration loading.
// ABOUTME: Uses t.Setenv so each case sees a controlled environment.
package config

import (
	"os"
	"testing"
)

// clearEnv unsets every variable Load reads. t.Setenv registers the restore;
// the unset afterwards makes envDefault values kick in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ONE_API_KEY", "OPENAI_API_KEY", "ONE_API_MODEL", "ONE_API_REMOTE",
		"LLM_ACTIVITY_AGENT_PROMPT", "LLM_SYSTEM_PROMPT",
		"ROAST_PROMPT_TEMPLATE", "ROAST_TOKEN_DIR", "ROAST_ACTIVITIES_FILE", "ROAST_CRITIQUES_FILE",
		"STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET", "STRAVA_REDIRECT_URI", "ROAST_AUTH_ADDR",
	} {
		t.Setenv(key, os.Getenv(key))
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"model", cfg.Model, "gpt-3.5-turbo"},
		{"prompt template", cfg.PromptTemplate, "prompts/activity_prompt.md"},
		{"token dir", cfg.TokenDir, "user_token"},
		{"activities file", cfg.ActivitiesFile, "latest_activities.json"},
		{"critiques file", cfg.CritiquesFile, "activity_critiques.json"},
		{"redirect uri", cfg.StravaRedirectURI, "http://localhost:5000/callback"},
		{"auth addr", cfg.AuthListenAddr, "127.0.0.1:5000"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ONE_API_MODEL", "gpt-4o")
	t.Setenv("ONE_API_REMOTE", "https://relay.example.com/v1")
	t.Setenv("ROAST_TOKEN_DIR", "/var/lib/roast/tokens")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.BaseURL != "https://relay.example.com/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.TokenDir != "/var/lib/roast/tokens" {
		t.Errorf("TokenDir = %q", cfg.TokenDir)
	}
}

func TestResolvedAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		fallback string
		want     string
	}{
		{"primary wins", "one-key", "openai-key", "one-key"},
		{"fallback used", "", "openai-key", "openai-key"},
		{"both empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIKey: tt.primary, FallbackAPIKey: tt.fallback}
			if got := cfg.ResolvedAPIKey(); got != tt.want {
				t.Errorf("ResolvedAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvedAgentPrompt(t *testing.T) {
	cfg := &Config{AgentPrompt: "agent", SystemPrompt: "system"}
	if got := cfg.ResolvedAgentPrompt(); got != "agent" {
		t.Errorf("ResolvedAgentPrompt() = %q, want agent", got)
	}
	cfg = &Config{SystemPrompt: "system"}
	if got := cfg.ResolvedAgentPrompt(); got != "system" {
		t.Errorf("ResolvedAgentPrompt() = %q, want system", got)
	}
	cfg = &Config{}
	if got := cfg.ResolvedAgentPrompt(); got != "" {
		t.Errorf("ResolvedAgentPrompt() = %q, want empty", got)
	}
}

func TestRequireLLM(t *testing.T) {
	if err := (&Config{}).RequireLLM(); err == nil {
		t.Error("expected error without any API key")
	}
	if err := (&Config{FallbackAPIKey: "k"}).RequireLLM(); err != nil {
		t.Errorf("unexpected error with fallback key: %v", err)
	}
}

func TestRequireOAuth(t *testing.T) {
	if err := (&Config{}).RequireOAuth(); err == nil {
		t.Error("expected error without OAuth credentials")
	}
	if err := (&Config{StravaClientID: "id"}).RequireOAuth(); err == nil {
		t.Error("expected error with missing client secret")
	}
	cfg := &Config{StravaClientID: "id", StravaClientSecret: "sec"}
	if err := cfg.RequireOAuth(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
