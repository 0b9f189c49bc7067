package skymsg

import (
	"net/http"
	"time"
)

type clientConfig struct {
	username            string
	password            string
	cachePath           string
	httpClient          *http.Client
	timeout             time.Duration
	loginURL            string
	messagesHost        string
	resubscribeStatuses []int
	clock               func() time.Time
}

func defaultConfig() clientConfig {
	return clientConfig{timeout: 30 * time.Second}
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithCredentials sets the account used for a fresh login.
func WithCredentials(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithTokenCache points at the three-line token cache file, read at
// construction and written after a fresh login.
func WithTokenCache(path string) ClientOption {
	return func(c *clientConfig) { c.cachePath = path }
}

// WithHTTPClient supplies a custom HTTP client, overriding the default
// transport and timeout.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithLoginURL overrides the login endpoint. Useful for testing.
func WithLoginURL(u string) ClientOption {
	return func(c *clientConfig) { c.loginURL = u }
}

// WithMessagesHost overrides the initial messaging base URL.
func WithMessagesHost(host string) ClientOption {
	return func(c *clientConfig) { c.messagesHost = host }
}

// WithResubscribeStatuses overrides the response statuses that trigger a
// resubscribe-retry cycle.
func WithResubscribeStatuses(statuses ...int) ClientOption {
	return func(c *clientConfig) { c.resubscribeStatuses = statuses }
}

// WithClock overrides the client's time source. Used by tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *clientConfig) { c.clock = now }
}
