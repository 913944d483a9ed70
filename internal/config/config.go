package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

// Config holds process-level settings. Per-event credentials arriving on the
// execution event take precedence over anything configured here.
type Config struct {
	DevRevEndpoint      string `yaml:"devrev_endpoint"`
	ServiceAccountToken string `yaml:"service_account_token"`
	SlackAPIToken       string `yaml:"slack_api_token"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	DefaultSlackChannel string `yaml:"default_slack_channel"`
	DefaultTimeframe    string `yaml:"default_timeframe"`
	DeliveryMode        string `yaml:"delivery_mode"`

	DBPath                     string `yaml:"db_path"`
	ReportSchedule             string `yaml:"report_schedule"`
	ProgressExpiryMinutes      int    `yaml:"progress_expiry_minutes"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.DevRevEndpoint, "DEVREV_ENDPOINT")
	envOverride(&cfg.ServiceAccountToken, "SERVICE_ACCOUNT_TOKEN")
	envOverride(&cfg.SlackAPIToken, "SLACK_API_TOKEN")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.DefaultSlackChannel, "DEFAULT_SLACK_CHANNEL")
	envOverride(&cfg.DefaultTimeframe, "DEFAULT_TIMEFRAME")
	envOverride(&cfg.DeliveryMode, "DELIVERY_MODE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportSchedule, "REPORT_SCHEDULE")
	envOverrideInt(&cfg.ProgressExpiryMinutes, "PROGRESS_EXPIRY_MINUTES")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	if cfg.DevRevEndpoint == "" {
		cfg.DevRevEndpoint = "https://api.devrev.ai"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.DefaultSlackChannel == "" {
		cfg.DefaultSlackChannel = "general"
	}
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = "24h"
	}
	if cfg.DeliveryMode == "" {
		cfg.DeliveryMode = "pdf"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./oppreport.db"
	}
	if cfg.ProgressExpiryMinutes == 0 {
		cfg.ProgressExpiryMinutes = 2
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}

	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	switch cfg.DeliveryMode {
	case "pdf", "text":
	default:
		log.Fatalf("delivery_mode must be 'pdf' or 'text', got '%s'", cfg.DeliveryMode)
	}

	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.ProgressExpiryMinutes < 1 {
		log.Fatalf("invalid progress_expiry_minutes '%d': must be >= 1", cfg.ProgressExpiryMinutes)
	}

	// Scheduled runs have no event to carry credentials, so they must all be
	// configured when a schedule is set.
	if strings.TrimSpace(cfg.ReportSchedule) != "" {
		required := map[string]string{
			"service_account_token": cfg.ServiceAccountToken,
			"slack_api_token":       cfg.SlackAPIToken,
		}
		switch cfg.LLMProvider {
		case "anthropic":
			required["anthropic_api_key"] = cfg.AnthropicAPIKey
		case "openai":
			required["openai_api_key"] = cfg.OpenAIAPIKey
		}
		for name, val := range required {
			if val == "" {
				log.Fatalf("Required config '%s' is not set for scheduled reports (via config.yaml or env var)", name)
			}
		}
	}

	return cfg
}

// LLMAPIKey returns the configured key for the selected provider.
func (c Config) LLMAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
