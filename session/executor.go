package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shillcollin/skymsg/core"
	"github.com/shillcollin/skymsg/obs"
)

// AuthKind selects which token header a call carries.
type AuthKind int

const (
	// AuthNone sends no token header.
	AuthNone AuthKind = iota
	// AuthSession attaches the session token header.
	AuthSession
	// AuthRegistration attaches the registration token header.
	AuthRegistration
)

// Wire header names. The server matches them case-insensitively.
const (
	headerSessionToken      = "X-Skypetoken"
	headerRegistrationToken = "RegistrationToken"
)

var defaultAccept = []int{200, 201, 207}

// CallOptions shape one API call. At most one of JSON, Form or Body may
// be set.
type CallOptions struct {
	// Accept lists response statuses treated as success. Defaults to
	// 200, 201 and 207.
	Accept  []int
	Auth    AuthKind
	Headers map[string]string
	Params  url.Values
	JSON    any
	Form    url.Values
	Body    io.Reader
}

// Executor issues one HTTP request per call. It attaches the requested
// auth header, validates the response status against the accepted set and
// returns typed errors. Retry policy lives in Resilient, not here.
type Executor struct {
	client *http.Client
	tokens *core.TokenStore
}

// NewExecutor builds an Executor over the given HTTP client and token store.
func NewExecutor(client *http.Client, tokens *core.TokenStore) *Executor {
	return &Executor{client: client, tokens: tokens}
}

// Do performs one request. On success the response is returned with its
// body open; the caller owns closing it.
func (e *Executor) Do(ctx context.Context, method, rawURL string, opts CallOptions) (_ *http.Response, err error) {
	ctx, recorder := obs.StartRequest(ctx, "session.call",
		attribute.String("http.request.method", method),
	)
	defer func() { recorder.End(err) }()

	var body io.Reader
	contentType := ""
	switch {
	case opts.JSON != nil:
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(opts.JSON); err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = buf
		contentType = "application/json"
	case opts.Form != nil:
		body = strings.NewReader(opts.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		body = opts.Body
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if len(opts.Params) > 0 {
		q := req.URL.Query()
		for k, vs := range opts.Params {
			q[k] = vs
		}
		req.URL.RawQuery = q.Encode()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if err := e.attachAuth(req, opts.Auth); err != nil {
		return nil, err
	}
	recorder.AddAttributes(attribute.String("server.address", req.URL.Host))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, core.NewTransportError(err)
	}

	accept := opts.Accept
	if len(accept) == 0 {
		accept = defaultAccept
	}
	for _, code := range accept {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return nil, core.NewAPIError(resp.StatusCode, method, rawURL, string(data))
}

func (e *Executor) attachAuth(req *http.Request, auth AuthKind) error {
	switch auth {
	case AuthSession:
		tok, ok := e.tokens.Get(core.TokenSession)
		if !ok || !e.tokens.Valid(core.TokenSession) {
			return core.ErrNoSessionToken
		}
		req.Header.Set(headerSessionToken, tok.Value)
	case AuthRegistration:
		tok, ok := e.tokens.Get(core.TokenRegistration)
		if !ok || tok.Value == "" {
			return core.ErrNoRegistrationToken
		}
		req.Header.Set(headerRegistrationToken, tok.Value)
	}
	return nil
}
