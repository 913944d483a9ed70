// Package devrev is a thin client for the DevRev works and timeline APIs.
package devrev

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const opportunityListLimit = 100

// Identity is one DevRev user reference as it appears on work items.
type Identity struct {
	Type        string `json:"type,omitempty"`
	DisplayID   string `json:"display_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	ID          string `json:"id,omitempty"`
	State       string `json:"state,omitempty"`
}

// Stage carries the deal outcome. Name is the interesting field
// (closed_won / closed_lost); the rest is forwarded as-is.
type Stage struct {
	Name    string          `json:"name,omitempty"`
	Notes   string          `json:"notes,omitempty"`
	Ordinal int             `json:"ordinal,omitempty"`
	Stage   json.RawMessage `json:"stage,omitempty"`
	State   string          `json:"state,omitempty"`
}

// Opportunity is one sales work item. Optional upstream fields stay optional
// here; records without an actual_close_date are excluded from window
// filtering rather than treated as errors.
type Opportunity struct {
	ID                  string          `json:"id"`
	Type                string          `json:"type,omitempty"`
	Title               string          `json:"title,omitempty"`
	DisplayID           string          `json:"display_id,omitempty"`
	Body                string          `json:"body,omitempty"`
	ActualCloseDate     string          `json:"actual_close_date,omitempty"`
	CreatedDate         string          `json:"created_date,omitempty"`
	ModifiedDate        string          `json:"modified_date,omitempty"`
	CreatedBy           Identity        `json:"created_by,omitempty"`
	ModifiedBy          Identity        `json:"modified_by,omitempty"`
	OwnedBy             []Identity      `json:"owned_by,omitempty"`
	Stage               Stage           `json:"stage,omitempty"`
	Revenue             float64         `json:"revenue,omitempty"`
	CustomFields        map[string]any  `json:"custom_fields,omitempty"`
	Tags                json.RawMessage `json:"tags,omitempty"`
	StockSchemaFragment string          `json:"stock_schema_fragment,omitempty"`
}

// CloseTime parses the record's close date. ok is false when the record has
// no usable close timestamp.
func (o Opportunity) CloseTime() (time.Time, bool) {
	if o.ActualCloseDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, o.ActualCloseDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PrimaryOwner returns the normalized (trimmed, lowercased) full name of the
// first owner, or "" when the record has none. Distinct people with equal
// display names merge under one key; accepted approximation.
func (o Opportunity) PrimaryOwner() string {
	if len(o.OwnedBy) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(o.OwnedBy[0].FullName))
}

type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewClient(endpoint, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// ListOpportunities requests up to limit opportunity work items.
func (c *Client) ListOpportunities(limit int) ([]Opportunity, error) {
	if limit <= 0 {
		limit = opportunityListLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("type", "opportunity")

	req, err := http.NewRequest("GET", c.endpoint+"/works.list?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-DevRev-Scope", "beta")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching opportunities: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DevRev API returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Works json.RawMessage `json:"works"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	// Shape check at the trust boundary: works must be a JSON array.
	trimmed := bytes.TrimSpace(payload.Works)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected an array of works, got %s", summarizeJSON(trimmed))
	}
	var works []Opportunity
	if err := json.Unmarshal(trimmed, &works); err != nil {
		return nil, fmt.Errorf("parsing works: %w", err)
	}
	return works, nil
}

// FetchOpportunities lists opportunities and keeps those closed within the
// last timeframeHours relative to now. An empty result is not an error.
func (c *Client) FetchOpportunities(timeframeHours int, now time.Time) ([]Opportunity, error) {
	works, err := c.ListOpportunities(opportunityListLimit)
	if err != nil {
		return nil, err
	}
	return FilterClosedWithin(works, timeframeHours, now), nil
}

// FilterClosedWithin drops records without a parsable close date and records
// closed before now minus timeframeHours.
func FilterClosedWithin(opps []Opportunity, timeframeHours int, now time.Time) []Opportunity {
	cutoff := now.Add(-time.Duration(timeframeHours) * time.Hour)
	var kept []Opportunity
	for _, opp := range opps {
		closed, ok := opp.CloseTime()
		if !ok {
			continue
		}
		if closed.Before(cutoff) {
			continue
		}
		kept = append(kept, opp)
	}
	return kept
}

func summarizeJSON(raw []byte) string {
	if len(raw) == 0 {
		return "nothing"
	}
	s := string(raw)
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
