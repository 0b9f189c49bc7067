package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shillcollin/skymsg/core"
	"github.com/shillcollin/skymsg/lockandkey"
)

// Default service endpoints.
const (
	DefaultLoginURL     = "https://login.skype.com/login?client_id=578134&redirect_uri=https%3A%2F%2Fweb.skype.com"
	DefaultMessagesHost = "https://client-s.gateway.messenger.live.com/v1/users/ME"
)

// State tracks the session's progress through the token chain.
type State int

const (
	StateUnauthenticated State = iota
	StateSessionAcquired
	StateRegistered
	StateEndpointRegistered
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSessionAcquired:
		return "session-acquired"
	case StateRegistered:
		return "registered"
	case StateEndpointRegistered:
		return "endpoint-registered"
	case StateSubscribed:
		return "subscribed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Manager drives the login handshake and the token-acquisition chain:
// session token, registration token, endpoint registration, event
// subscription. It owns the messages host, which the server may redirect
// during registration.
type Manager struct {
	exec     *Executor
	tokens   *core.TokenStore
	loginURL string
	msgsHost string
	endpoint string
	state    State
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLoginURL overrides the login endpoint.
func WithLoginURL(u string) ManagerOption {
	return func(m *Manager) { m.loginURL = u }
}

// WithMessagesHost overrides the initial messages host.
func WithMessagesHost(host string) ManagerOption {
	return func(m *Manager) { m.msgsHost = host }
}

// WithClock overrides the manager's time source. Used by tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager over the given executor and token store.
func NewManager(exec *Executor, tokens *core.TokenStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		exec:     exec,
		tokens:   tokens,
		loginURL: DefaultLoginURL,
		msgsHost: DefaultMessagesHost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the session's current progress.
func (m *Manager) State() State { return m.state }

// MessagesHost returns the current messaging base URL, following any
// redirect applied during registration.
func (m *Manager) MessagesHost() string { return m.msgsHost }

// Endpoint returns the registered endpoint URL, empty before
// RegisterEndpoint succeeds.
func (m *Manager) Endpoint() string { return m.endpoint }

// Restore seeds the manager with a cached, still-valid session token and
// messages host, skipping Login on the next Establish.
func (m *Manager) Restore(token core.Token, host string) bool {
	if token.Value == "" || token.Expired(m.now()) || host == "" {
		return false
	}
	token.Kind = core.TokenSession
	m.tokens.Set(token)
	m.msgsHost = host
	if m.state < StateSessionAcquired {
		m.state = StateSessionAcquired
	}
	return true
}

// Login fetches the login form, posts credentials with the scraped
// anti-forgery tokens and records the returned session token.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	pageResp, err := m.exec.Do(ctx, "GET", m.loginURL, CallOptions{Accept: []int{200}})
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	form, err := parseLoginPage(pageResp.Body)
	pageResp.Body.Close()
	if err != nil {
		return err
	}

	now := m.now()
	fields := url.Values{
		"username":       {username},
		"password":       {password},
		"pie":            {form.pie},
		"etm":            {form.etm},
		"timezone_field": {timezoneField(now)},
		"js_time":        {strconv.FormatInt(now.Unix(), 10)},
	}
	loginResp, err := m.exec.Do(ctx, "POST", m.loginURL, CallOptions{Accept: []int{200}, Form: fields})
	if err != nil {
		return fmt.Errorf("post credentials: %w", err)
	}
	token, err := parseLoginResponse(loginResp.Body, now)
	loginResp.Body.Close()
	if err != nil {
		return err
	}

	m.tokens.Set(token)
	if m.state < StateSessionAcquired {
		m.state = StateSessionAcquired
	}
	return nil
}

// AcquireRegistrationToken trades the session token for a registration
// token via the LockAndKey challenge. A Location header naming a
// different host moves the session there and retries the exchange; the
// recursion terminates once Location matches the current host.
func (m *Manager) AcquireRegistrationToken(ctx context.Context) error {
	if !m.tokens.Valid(core.TokenSession) {
		return fmt.Errorf("acquire registration token: %w", core.ErrNoSessionToken)
	}
	sessionToken, _ := m.tokens.Get(core.TokenSession)

	lk, err := lockandkey.Header(m.now())
	if err != nil {
		return err
	}
	resp, err := m.exec.Do(ctx, "POST", m.msgsHost+"/endpoints", CallOptions{
		Accept: []int{201, 301},
		Headers: map[string]string{
			"LockAndKey":     lk,
			"Authentication": "skypetoken=" + sessionToken.Value,
		},
		JSON: struct{}{},
	})
	if err != nil {
		return err
	}
	location := resp.Header.Get("Location")
	regToken := resp.Header.Get("Set-RegistrationToken")
	resp.Body.Close()

	if host := trimEndpointPath(location); host != "" && host != m.msgsHost {
		m.msgsHost = host
		return m.AcquireRegistrationToken(ctx)
	}
	if regToken == "" {
		return fmt.Errorf("registration response missing token header")
	}
	m.tokens.Set(core.Token{Kind: core.TokenRegistration, Value: regToken})
	if m.state < StateRegistered {
		m.state = StateRegistered
	}
	return nil
}

// RegisterEndpoint creates a messaging endpoint under the registration
// token and publishes its presence document.
func (m *Manager) RegisterEndpoint(ctx context.Context) error {
	if !m.tokens.Valid(core.TokenRegistration) {
		return fmt.Errorf("register endpoint: %w", core.ErrNoRegistrationToken)
	}
	resp, err := m.exec.Do(ctx, "POST", m.msgsHost+"/endpoints", CallOptions{
		Auth: AuthRegistration,
		JSON: struct{}{},
	})
	if err != nil {
		return err
	}
	endpoint := resp.Header.Get("Location")
	resp.Body.Close()
	if endpoint == "" {
		return fmt.Errorf("endpoint response missing location")
	}
	m.endpoint = endpoint
	m.tokens.Set(core.Token{Kind: core.TokenEndpoint, Value: endpoint})

	presence, err := m.exec.Do(ctx, "PUT", endpoint+"/presenceDocs/messagingService", CallOptions{
		Auth: AuthRegistration,
		JSON: presenceDoc(),
	})
	if err != nil {
		return err
	}
	presence.Body.Close()

	if m.state < StateEndpointRegistered {
		m.state = StateEndpointRegistered
	}
	return nil
}

// Subscribe registers interest in conversation and contact events over
// the long-poll channel. Safe to re-invoke.
func (m *Manager) Subscribe(ctx context.Context) error {
	if !m.tokens.Valid(core.TokenRegistration) {
		return fmt.Errorf("subscribe: %w", core.ErrNoRegistrationToken)
	}
	resp, err := m.exec.Do(ctx, "POST", m.msgsHost+"/endpoints/SELF/subscriptions", CallOptions{
		Auth: AuthRegistration,
		JSON: map[string]any{
			"interestedResources": []string{
				"/v1/threads/ALL",
				"/v1/users/ME/contacts/ALL",
				"/v1/users/ME/conversations/ALL/messages",
				"/v1/users/ME/conversations/ALL/properties",
			},
			"template":    "raw",
			"channelType": "httpLongPoll",
		},
	})
	if err != nil {
		return err
	}
	resp.Body.Close()
	if m.state < StateSubscribed {
		m.state = StateSubscribed
	}
	return nil
}

// Resubscribe re-runs the registration-token exchange and the event
// subscription. Resilient invokes this between the two attempts it makes.
func (m *Manager) Resubscribe(ctx context.Context) error {
	if err := m.AcquireRegistrationToken(ctx); err != nil {
		return err
	}
	return m.Subscribe(ctx)
}

// Establish drives the full chain: Login (unless a restored session token
// is still valid), registration token, endpoint, subscription.
func (m *Manager) Establish(ctx context.Context, username, password string) error {
	if !m.tokens.Valid(core.TokenSession) {
		if err := m.Login(ctx, username, password); err != nil {
			return err
		}
	}
	if err := m.AcquireRegistrationToken(ctx); err != nil {
		return err
	}
	if err := m.RegisterEndpoint(ctx); err != nil {
		return err
	}
	return m.Subscribe(ctx)
}

// trimEndpointPath drops the trailing two path segments of an endpoint
// Location, yielding the messages host it lives under.
func trimEndpointPath(location string) string {
	s := location
	for i := 0; i < 2; i++ {
		idx := strings.LastIndex(s, "/")
		if idx < 0 {
			return location
		}
		s = s[:idx]
	}
	return s
}

func presenceDoc() map[string]any {
	return map[string]any{
		"id": "messagingService",
		"privateInfo": map[string]any{
			"epname": "skype",
		},
		"publicInfo": map[string]any{
			"capabilities":     "",
			"nodeInfo":         "xx",
			"skypeNameVersion": "skype.com",
			"type":             1,
		},
		"selfLink": "uri",
		"type":     "EndpointPresenceDoc",
	}
}
