package core

import (
	"testing"
	"time"
)

func TestTokenExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tok := Token{Kind: TokenSession, Value: "abc", Expiry: now.Add(time.Hour)}
	if tok.Expired(now) {
		t.Fatalf("token expired an hour early")
	}
	if !tok.Expired(now.Add(time.Hour)) {
		t.Fatalf("token still valid at its expiry instant")
	}
	perpetual := Token{Kind: TokenRegistration, Value: "reg"}
	if perpetual.Expired(now.Add(24 * 365 * time.Hour)) {
		t.Fatalf("registration tokens have no client-side expiry")
	}
}

func TestTokenStoreValid(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := NewTokenStore()
	store.SetClock(func() time.Time { return now })

	if store.Valid(TokenSession) {
		t.Fatalf("empty store reported a valid session token")
	}

	store.Set(Token{Kind: TokenSession, Value: "abc", Expiry: now.Add(time.Minute)})
	if !store.Valid(TokenSession) {
		t.Fatalf("fresh session token reported invalid")
	}

	now = now.Add(2 * time.Minute)
	if store.Valid(TokenSession) {
		t.Fatalf("expired session token reported valid")
	}

	store.Set(Token{Kind: TokenRegistration, Value: "reg"})
	if !store.Valid(TokenRegistration) {
		t.Fatalf("registration token reported invalid")
	}

	store.Invalidate(TokenRegistration)
	if store.Valid(TokenRegistration) {
		t.Fatalf("invalidated token reported valid")
	}
}
