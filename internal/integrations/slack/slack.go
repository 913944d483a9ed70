// Package slack delivers the finished report to a channel.
package slack

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	slackapi "github.com/slack-go/slack"
)

const ReportFilename = "Business_Opportunities_Report.pdf"
const ReportTitle = "Business Opportunities Report"

// ErrChannelNotFound marks a channel name absent from the workspace (or not
// visible to the bot). Callers match it with errors.Is.
var ErrChannelNotFound = errors.New("channel not found")

type Client struct {
	api *slackapi.Client
}

func NewClient(token string, httpClient *http.Client) *Client {
	var opts []slackapi.Option
	if httpClient != nil {
		opts = append(opts, slackapi.OptionHTTPClient(httpClient))
	}
	return &Client{api: slackapi.New(token, opts...)}
}

// ResolveChannelID walks the (paged) channel list looking for an exact name
// match and returns the platform channel id.
func (c *Client) ResolveChannelID(name string) (string, error) {
	cursor := ""
	for {
		channels, next, err := c.api.GetConversations(&slackapi.GetConversationsParameters{
			ExcludeArchived: true,
			Limit:           200,
			Cursor:          cursor,
			Types:           []string{"public_channel", "private_channel"},
		})
		if err != nil {
			return "", fmt.Errorf("listing channels: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if next == "" {
			return "", fmt.Errorf("%w: %q", ErrChannelNotFound, name)
		}
		cursor = next
	}
}

// JoinChannel joins the channel; joining a channel the bot is already in is
// not an error.
func (c *Client) JoinChannel(channelID string) error {
	_, _, _, err := c.api.JoinConversation(channelID)
	if err != nil && !strings.Contains(err.Error(), "already_in_channel") {
		return fmt.Errorf("joining channel %s: %w", channelID, err)
	}
	return nil
}

// DeliveryResult reports the outcome of an upload or post. Ordinary
// rejections (upload refused, channel archived) land here with OK=false;
// transport-level failures are returned as errors instead.
type DeliveryResult struct {
	OK    bool
	Error string
}

// UploadReport attaches the PDF to the channel.
func (c *Client) UploadReport(channelID string, pdf []byte) (DeliveryResult, error) {
	_, err := c.api.UploadFileV2(slackapi.UploadFileV2Parameters{
		Channel:  channelID,
		Reader:   bytes.NewReader(pdf),
		FileSize: len(pdf),
		Filename: ReportFilename,
		Title:    ReportTitle,
	})
	return resultFromError("uploading report", err)
}

// PostText posts the plain-text report, the degraded-mode delivery path.
func (c *Client) PostText(channelID, text string) (DeliveryResult, error) {
	_, _, err := c.api.PostMessage(channelID, slackapi.MsgOptionText(text, false))
	return resultFromError("posting message", err)
}

func resultFromError(op string, err error) (DeliveryResult, error) {
	if err == nil {
		return DeliveryResult{OK: true}, nil
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return DeliveryResult{}, fmt.Errorf("%s: %w", op, err)
	}
	// Auth failures are terminal for every later call on this token, so they
	// propagate instead of reading as an ordinary rejection.
	var apiErr slackapi.SlackErrorResponse
	if errors.As(err, &apiErr) && isAuthError(apiErr.Err) {
		return DeliveryResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return DeliveryResult{OK: false, Error: err.Error()}, nil
}

func isAuthError(code string) bool {
	switch code {
	case "invalid_auth", "token_revoked", "account_inactive", "not_authed":
		return true
	}
	return false
}
