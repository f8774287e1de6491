// ABOUTME: Runtime configuration for the roast pipeline, parsed from environment.
// ABOUTME: One explicit struct handed to each stage constructor; no ambient globals.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config collects every runtime option the pipeline, auth helper, and
// generator need. Flags layered on top by the commands override these.
type Config struct {
	// LLM settings. ONE_API_* match the relay the critiques go through;
	// OPENAI_API_KEY is honored as a fallback key.
	APIKey         string `env:"ONE_API_KEY"`
	FallbackAPIKey string `env:"OPENAI_API_KEY"`
	Model          string `env:"ONE_API_MODEL" envDefault:"gpt-3.5-turbo"`
	BaseURL        string `env:"ONE_API_REMOTE"`
	AgentPrompt    string `env:"LLM_ACTIVITY_AGENT_PROMPT"`
	SystemPrompt   string `env:"LLM_SYSTEM_PROMPT"`

	// Pipeline files.
	PromptTemplate string `env:"ROAST_PROMPT_TEMPLATE" envDefault:"prompts/activity_prompt.md"`
	TokenDir       string `env:"ROAST_TOKEN_DIR" envDefault:"user_token"`
	ActivitiesFile string `env:"ROAST_ACTIVITIES_FILE" envDefault:"latest_activities.json"`
	CritiquesFile  string `env:"ROAST_CRITIQUES_FILE" envDefault:"activity_critiques.json"`

	// Strava OAuth application.
	StravaClientID     string `env:"STRAVA_CLIENT_ID"`
	StravaClientSecret string `env:"STRAVA_CLIENT_SECRET"`
	StravaRedirectURI  string `env:"STRAVA_REDIRECT_URI" envDefault:"http://localhost:5000/callback"`
	AuthListenAddr     string `env:"ROAST_AUTH_ADDR" envDefault:"127.0.0.1:5000"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量配置失败: %w", err)
	}
	return cfg, nil
}

// ResolvedAPIKey returns the LLM API key, preferring ONE_API_KEY.
func (c *Config) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return c.FallbackAPIKey
}

// ResolvedAgentPrompt returns the configured agent system prompt, or empty
// when the generator should use its built-in default.
func (c *Config) ResolvedAgentPrompt() string {
	if c.AgentPrompt != "" {
		return c.AgentPrompt
	}
	return c.SystemPrompt
}

// RequireLLM validates the settings the generate stage needs, before any
// network call is made.
func (c *Config) RequireLLM() error {
	if c.ResolvedAPIKey() == "" {
		return fmt.Errorf("缺少 LLM API Key，请设置 ONE_API_KEY/OPENAI_API_KEY 或使用 --api-key")
	}
	return nil
}

// RequireOAuth validates the Strava application credentials the auth helper
// and the token refresh path need.
func (c *Config) RequireOAuth() error {
	var missing []string
	if c.StravaClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if c.StravaClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少 Strava 配置 %v，请更新 .env 文件", missing)
	}
	return nil
}
