package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIErrorStatus(t *testing.T) {
	err := NewAPIError(404, "GET", "https://host/v1/users/ME/conversations", "{}")
	if !IsAPIError(err) {
		t.Fatalf("expected api_status classification")
	}
	status, ok := StatusOf(err)
	if !ok || status != 404 {
		t.Fatalf("StatusOf = %d, %v", status, ok)
	}
	if want := "404 response from GET https://host/v1/users/ME/conversations"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStatusOfWrapped(t *testing.T) {
	err := fmt.Errorf("recent conversations: %w", NewAPIError(401, "GET", "u", ""))
	status, ok := StatusOf(err)
	if !ok || status != 401 {
		t.Fatalf("StatusOf through wrap = %d, %v", status, ok)
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransportError(cause)
	if !IsTransport(err) {
		t.Fatalf("expected transport classification")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to survive unwrapping")
	}
	if _, ok := StatusOf(err); ok {
		t.Fatalf("transport errors carry no status")
	}
}

func TestPreconditionSentinels(t *testing.T) {
	if !IsPrecondition(ErrNoSessionToken) || !IsPrecondition(ErrNoRegistrationToken) {
		t.Fatalf("expected precondition classification")
	}
	wrapped := fmt.Errorf("acquire registration token: %w", ErrNoSessionToken)
	if !errors.Is(wrapped, ErrNoSessionToken) {
		t.Fatalf("sentinel lost through wrapping")
	}
}

func TestClassifyRejectsOtherCodes(t *testing.T) {
	if IsAuthRejected(NewCaptchaRequired()) {
		t.Fatalf("captcha must not classify as auth rejection")
	}
	if IsAPIError(errors.New("plain")) {
		t.Fatalf("plain errors must not classify")
	}
}
