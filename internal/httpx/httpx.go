// Package httpx owns the single HTTP client used for all outbound calls
// (DevRev, Slack, OpenAI) so the timeout is applied uniformly.
package httpx

import (
	"net/http"
	"time"
)

const defaultTimeout = 90 * time.Second

var client = &http.Client{Timeout: defaultTimeout}

// Configure sets the shared client timeout and returns the applied value.
// Non-positive inputs keep the default.
func Configure(seconds int) time.Duration {
	if seconds > 0 {
		client.Timeout = time.Duration(seconds) * time.Second
	}
	return client.Timeout
}

func Client() *http.Client {
	return client
}
