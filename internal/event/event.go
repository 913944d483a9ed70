// Package event models the execution events delivered by the invocation
// harness and resolves credentials and defaults out of them. Two historical
// event shapes coexist: newer events carry tokens in input_data.keyrings,
// older ones in context.secrets. Resolution order is keyring, then secret,
// then process config.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"oppreport/internal/config"
)

type Event struct {
	Context           Context           `json:"context"`
	InputData         InputData         `json:"input_data"`
	Payload           Payload           `json:"payload"`
	ExecutionMetadata ExecutionMetadata `json:"execution_metadata"`
}

type Context struct {
	Secrets map[string]string `json:"secrets"`
}

type InputData struct {
	Keyrings     map[string]string `json:"keyrings"`
	GlobalValues map[string]string `json:"global_values"`
}

type Payload struct {
	// Parameters is the free-text command argument, e.g. "general 24h".
	Parameters string `json:"parameters"`
	// SourceID is the work item whose thread receives progress comments.
	SourceID string `json:"source_id"`
}

type ExecutionMetadata struct {
	DevRevEndpoint string `json:"devrev_endpoint"`
}

// Credentials are the per-run secrets after precedence resolution.
type Credentials struct {
	DevRevToken string
	SlackToken  string
	LLMKey      string
	Endpoint    string
}

// Defaults are the fallback channel and timeframe for sparse commands.
type Defaults struct {
	Channel   string
	Timeframe string
}

// ResolveCredentials applies the keyring > secret > config precedence and
// fails when a required credential is absent everywhere.
func ResolveCredentials(ev Event, cfg config.Config) (Credentials, error) {
	creds := Credentials{
		DevRevToken: firstNonEmpty(
			ev.Context.Secrets["service_account_token"],
			cfg.ServiceAccountToken,
		),
		SlackToken: firstNonEmpty(
			ev.InputData.Keyrings["slack_api_token"],
			ev.InputData.Keyrings["slack_oauth_token"],
			ev.Context.Secrets["slack_api_token"],
			ev.Context.Secrets["slack_oauth_token"],
			cfg.SlackAPIToken,
		),
		LLMKey: firstNonEmpty(
			ev.InputData.Keyrings["llm_api_token"],
			ev.Context.Secrets["llm_api_token"],
			cfg.LLMAPIKey(),
		),
		Endpoint: firstNonEmpty(
			ev.ExecutionMetadata.DevRevEndpoint,
			cfg.DevRevEndpoint,
		),
	}

	var missing []string
	if creds.DevRevToken == "" {
		missing = append(missing, "service_account_token")
	}
	if creds.SlackToken == "" {
		missing = append(missing, "slack_api_token")
	}
	if creds.LLMKey == "" {
		missing = append(missing, "llm_api_token")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("missing required secrets: %v", missing)
	}
	return creds, nil
}

// ResolveDefaults prefers event-scoped global values over process config.
func ResolveDefaults(ev Event, cfg config.Config) Defaults {
	return Defaults{
		Channel: firstNonEmpty(
			ev.InputData.GlobalValues["default_slack_channel"],
			cfg.DefaultSlackChannel,
		),
		Timeframe: firstNonEmpty(
			ev.InputData.GlobalValues["default_timeframe"],
			cfg.DefaultTimeframe,
		),
	}
}

// DecodeBatch reads either a JSON array of events or a single event object.
func DecodeBatch(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("parsing event batch: %w", err)
		}
		return events, nil
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parsing event: %w", err)
	}
	return []Event{ev}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
