// Package skymsg is a client for the Skype web messaging API. The API has
// no public specification: authentication is a multi-stage token exchange
// gated by a keyed-hash challenge, and bulk retrieval uses a cursor-based
// incremental-sync protocol over plain HTTP.
package skymsg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shillcollin/skymsg/core"
	"github.com/shillcollin/skymsg/internal/httpclient"
	"github.com/shillcollin/skymsg/session"
	"github.com/shillcollin/skymsg/syncpage"
)

// Client is the entry point for the messaging API. It owns the session
// (token chain plus messages host) and the sync-cursor state for paged
// resources. Operations are strictly sequential; a Client must not be
// shared across goroutines without external serialization.
type Client struct {
	httpClient *http.Client
	tokens     *core.TokenStore
	exec       *session.Executor
	manager    *session.Manager
	resilient  *session.Resilient
	pager      *syncpage.Pager

	username  string
	password  string
	cachePath string
	now       func() time.Time

	chats *Chats
}

// NewClient builds a Client. Credentials are required unless a token
// cache with an unexpired session is supplied.
func NewClient(opts ...ClientOption) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.WithTimeout(cfg.timeout))
	}

	tokens := core.NewTokenStore()
	if cfg.clock != nil {
		tokens.SetClock(cfg.clock)
	}
	exec := session.NewExecutor(httpClient, tokens)

	managerOpts := []session.ManagerOption{}
	if cfg.loginURL != "" {
		managerOpts = append(managerOpts, session.WithLoginURL(cfg.loginURL))
	}
	if cfg.messagesHost != "" {
		managerOpts = append(managerOpts, session.WithMessagesHost(cfg.messagesHost))
	}
	if cfg.clock != nil {
		managerOpts = append(managerOpts, session.WithClock(cfg.clock))
	}
	manager := session.NewManager(exec, tokens, managerOpts...)

	now := cfg.clock
	if now == nil {
		now = time.Now
	}

	c := &Client{
		httpClient: httpClient,
		tokens:     tokens,
		exec:       exec,
		manager:    manager,
		resilient:  session.NewResilient(manager, cfg.resubscribeStatuses...),
		pager:      syncpage.NewPager(),
		username:   cfg.username,
		password:   cfg.password,
		cachePath:  cfg.cachePath,
		now:        now,
	}
	c.chats = &Chats{client: c}
	return c
}

// Connect establishes the session: restores a cached session token if one
// is available and unexpired, logs in otherwise, then acquires the
// registration token, registers an endpoint and subscribes to events. A
// fresh login is persisted back to the token cache.
func (c *Client) Connect(ctx context.Context) error {
	restored := false
	if c.cachePath != "" {
		if cached, err := session.ReadCache(c.cachePath); err == nil && cached.Valid(c.now()) {
			restored = c.manager.Restore(cached.SessionToken(), cached.Host)
		}
	}

	if err := c.manager.Establish(ctx, c.username, c.password); err != nil {
		return err
	}

	if !restored && c.cachePath != "" {
		tok, _ := c.tokens.Get(core.TokenSession)
		cached := session.CachedSession{
			Token:  tok.Value,
			Expiry: tok.Expiry,
			Host:   c.manager.MessagesHost(),
		}
		if err := session.WriteCache(c.cachePath, cached); err != nil {
			return fmt.Errorf("persist token cache: %w", err)
		}
	}
	return nil
}

// State reports the session's progress through the token chain.
func (c *Client) State() session.State { return c.manager.State() }

// Host returns the current messaging base URL.
func (c *Client) Host() string { return c.manager.MessagesHost() }

// Chats provides access to conversations.
func (c *Client) Chats() *Chats { return c.chats }

// fetchPage retrieves one raw sync page under registration auth and
// extracts the server's cursor from the payload metadata.
func (c *Client) fetchPage(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, string, error) {
	resp, err := c.exec.Do(ctx, "GET", rawURL, session.CallOptions{
		Auth:   session.AuthRegistration,
		Params: params,
	})
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read page: %w", err)
	}
	var meta struct {
		Metadata struct {
			SyncState string `json:"syncState"`
		} `json:"_metadata"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, "", fmt.Errorf("decode page metadata: %w", err)
	}
	return json.RawMessage(data), meta.Metadata.SyncState, nil
}

// callJSON performs one registration-auth call and decodes the JSON
// response into out when out is non-nil.
func (c *Client) callJSON(ctx context.Context, method, rawURL string, opts session.CallOptions, out any) error {
	opts.Auth = session.AuthRegistration
	resp, err := c.exec.Do(ctx, method, rawURL, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// historyParams are the query parameters addressing the first page of a
// history resource.
func historyParams() url.Values {
	return url.Values{
		"startTime":  {"0"},
		"view":       {"msnp24Equivalent"},
		"targetType": {"Passport|Skype|Lync|Thread"},
	}
}
