// Package llm generates the opportunity summary text. Anthropic is the
// default provider via the official SDK; OpenAI is supported through the
// chat-completions HTTP API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"oppreport/internal/integrations/devrev"
)

// SummaryFallback is returned when the model responds with no content. It is
// a valid summary value, not an error, and flows through cleaning and
// rendering like any other text.
const SummaryFallback = "Summary generation failed."

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o"
const defaultOpenAIBaseURL = "https://api.openai.com"
const maxSummaryTokens = 1000

const systemPrompt = "You are a business assistant that generates concise summaries of sales opportunities based on provided data."

type Client struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint; used by tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Summarize sends the projected record set to the configured provider and
// returns its freeform text, or SummaryFallback when the response carries no
// content.
func (c *Client) Summarize(opps []devrev.Opportunity, windowLabel string) (string, error) {
	userPrompt, err := buildUserPrompt(opps, windowLabel)
	if err != nil {
		return "", err
	}

	switch c.Provider {
	case "openai":
		model := c.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		log.Printf("llm summarize provider=openai model=%s opportunities=%d", model, len(opps))
		return c.callOpenAI(model, userPrompt)
	default:
		model := c.Model
		if model == "" {
			model = defaultAnthropicModel
		}
		log.Printf("llm summarize provider=anthropic model=%s opportunities=%d", model, len(opps))
		return c.callAnthropic(model, userPrompt)
	}
}

// The projection types below are the prompt contract: field names and
// nesting must stay exactly as the prompt was engineered against.

type promptIdentity struct {
	Type        string `json:"type"`
	DisplayID   string `json:"display_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	ID          string `json:"id"`
	State       string `json:"state"`
}

type promptStage struct {
	Name    string          `json:"name"`
	Notes   string          `json:"notes"`
	Ordinal int             `json:"ordinal"`
	Stage   json.RawMessage `json:"stage"`
	State   string          `json:"state"`
}

type promptOpportunity struct {
	ID                  string            `json:"id"`
	Type                string            `json:"type"`
	ActualCloseDate     string            `json:"actual_close_date"`
	Body                string            `json:"body"`
	CreatedBy           promptIdentity    `json:"created_by"`
	CreatedDate         string            `json:"created_date"`
	CustomFields        map[string]any    `json:"custom_fields"`
	DisplayID           string            `json:"display_id"`
	ModifiedBy          promptIdentity    `json:"modified_by"`
	ModifiedDate        string            `json:"modified_date"`
	OwnedBy             []devrev.Identity `json:"owned_by"`
	Stage               promptStage       `json:"stage"`
	StockSchemaFragment string            `json:"stock_schema_fragment"`
	Tags                json.RawMessage   `json:"tags"`
	Title               string            `json:"title"`
}

func projectIdentity(id devrev.Identity) promptIdentity {
	return promptIdentity{
		Type:        id.Type,
		DisplayID:   id.DisplayID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		FullName:    id.FullName,
		ID:          id.ID,
		State:       id.State,
	}
}

func projectOpportunities(opps []devrev.Opportunity) []promptOpportunity {
	details := make([]promptOpportunity, 0, len(opps))
	for _, opp := range opps {
		details = append(details, promptOpportunity{
			ID:              opp.ID,
			Type:            opp.Type,
			ActualCloseDate: opp.ActualCloseDate,
			Body:            opp.Body,
			CreatedBy:       projectIdentity(opp.CreatedBy),
			CreatedDate:     opp.CreatedDate,
			CustomFields:    opp.CustomFields,
			DisplayID:       opp.DisplayID,
			ModifiedBy:      projectIdentity(opp.ModifiedBy),
			ModifiedDate:    opp.ModifiedDate,
			OwnedBy:         opp.OwnedBy,
			Stage: promptStage{
				Name:    opp.Stage.Name,
				Notes:   opp.Stage.Notes,
				Ordinal: opp.Stage.Ordinal,
				Stage:   opp.Stage.Stage,
				State:   opp.Stage.State,
			},
			StockSchemaFragment: opp.StockSchemaFragment,
			Tags:                opp.Tags,
			Title:               opp.Title,
		})
	}
	return details
}

func buildUserPrompt(opps []devrev.Opportunity, windowLabel string) (string, error) {
	details, err := json.MarshalIndent(projectOpportunities(opps), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling opportunities: %w", err)
	}
	return fmt.Sprintf(`This report summarizes the closed-won opportunities in the last %s.

Opportunities:
%s

Please summarize the following:
1. Total revenue from all closed-won opportunities.
2. The top customer by revenue.
3. The total number of closed-won opportunities.
4. A concise summary of each opportunity, including name, revenue, owner, customer, tickets, and discussions.

Provide the output in a well-structured, brief format such that i can make a pdf out of it divide each subheading to sections intro Content and conclusion. Avoid raw data and focus on insights.`, windowLabel, details), nil
}

func (c *Client) callAnthropic(model, userPrompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxSummaryTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	log.Printf("llm anthropic response had no text content, using fallback")
	return SummaryFallback, nil
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) callOpenAI(model, userPrompt string) (string, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: maxSummaryTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	req, err := http.NewRequest("POST", strings.TrimRight(baseURL, "/")+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 || strings.TrimSpace(openAIResp.Choices[0].Message.Content) == "" {
		log.Printf("llm openai response had no content, using fallback")
		return SummaryFallback, nil
	}
	return openAIResp.Choices[0].Message.Content, nil
}
