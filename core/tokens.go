package core

import "time"

// TokenKind identifies one of the three token slots used by a session.
type TokenKind string

const (
	// TokenSession is the primary login token. It expires at an absolute
	// server-provided time.
	TokenSession TokenKind = "session"
	// TokenRegistration authorizes calls against the messaging host. It
	// carries no client-side expiry; invalidation is detected reactively.
	TokenRegistration TokenKind = "registration"
	// TokenEndpoint references the registered messaging endpoint.
	TokenEndpoint TokenKind = "endpoint"
)

// Token pairs an opaque value with its expiry metadata. A zero Expiry
// means the token is treated as valid for the life of the process.
type Token struct {
	Kind   TokenKind
	Value  string
	Expiry time.Time
}

// Expired reports whether the token has passed its expiry at the given time.
func (t Token) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry)
}

// TokenStore holds the session's tokens. It is not safe for concurrent
// use; the session model is strictly sequential.
type TokenStore struct {
	tokens map[TokenKind]Token
	now    func() time.Time
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[TokenKind]Token), now: time.Now}
}

// SetClock overrides the store's time source. Used by tests.
func (s *TokenStore) SetClock(now func() time.Time) { s.now = now }

// Set stores a token under its kind.
func (s *TokenStore) Set(t Token) { s.tokens[t.Kind] = t }

// Get returns the stored token for kind, valid or not.
func (s *TokenStore) Get(kind TokenKind) (Token, bool) {
	t, ok := s.tokens[kind]
	return t, ok
}

// Valid reports whether a non-expired token is present for kind.
func (s *TokenStore) Valid(kind TokenKind) bool {
	t, ok := s.tokens[kind]
	return ok && t.Value != "" && !t.Expired(s.now())
}

// Invalidate drops the token for kind, if any.
func (s *TokenStore) Invalidate(kind TokenKind) { delete(s.tokens, kind) }
