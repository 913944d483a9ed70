package devrev

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// CreateTimelineComment posts an internal comment on the given object and
// returns the new entry id. When expiresInMins is positive the comment
// carries a visibility timeout so progress notes clean themselves up.
func (c *Client) CreateTimelineComment(objectID, body string, expiresInMins int) (string, error) {
	payload := map[string]any{
		"object":     objectID,
		"type":       "timeline_comment",
		"body":       body,
		"body_type":  "text",
		"visibility": "internal",
	}
	if expiresInMins > 0 {
		payload["expires_at"] = time.Now().Add(time.Duration(expiresInMins) * time.Minute).UTC().Format(time.RFC3339)
	}

	var resp struct {
		TimelineEntry struct {
			ID string `json:"id"`
		} `json:"timeline_entry"`
	}
	if err := c.postJSON("/timeline-entries.create", payload, &resp); err != nil {
		return "", fmt.Errorf("creating timeline comment: %w", err)
	}
	return resp.TimelineEntry.ID, nil
}

// UpdateTimelineComment replaces the body of an existing comment.
func (c *Client) UpdateTimelineComment(commentID, body string) error {
	payload := map[string]any{
		"id":   commentID,
		"type": "timeline_comment",
		"body": body,
	}
	if err := c.postJSON("/timeline-entries.update", payload, nil); err != nil {
		return fmt.Errorf("updating timeline comment: %w", err)
	}
	return nil
}

func (c *Client) postJSON(path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequest("POST", c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("DevRev API returned %d: %s", resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// ProgressNotifier posts best-effort status lines to the triggering work
// item's thread, creating one comment and updating it in place afterwards.
// A nil notifier or empty object id is a no-op; post failures are logged,
// never escalated.
type ProgressNotifier struct {
	Client        *Client
	ObjectID      string
	ExpiryMinutes int

	commentID string
}

func (p *ProgressNotifier) Notify(text string) {
	if p == nil || p.Client == nil || p.ObjectID == "" {
		return
	}
	if p.commentID == "" {
		id, err := p.Client.CreateTimelineComment(p.ObjectID, text, p.ExpiryMinutes)
		if err != nil {
			log.Printf("progress note failed object=%s err=%v", p.ObjectID, err)
			return
		}
		p.commentID = id
		return
	}
	if err := p.Client.UpdateTimelineComment(p.commentID, text); err != nil {
		log.Printf("progress note update failed comment=%s err=%v", p.commentID, err)
	}
}
