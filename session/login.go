package session

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shillcollin/skymsg/core"
)

// loginForm carries the anti-forgery tokens scraped from the login page.
type loginForm struct {
	pie string
	etm string
}

// parseLoginPage extracts the anti-forgery tokens from the login form.
// A captcha element on the page is fatal; it needs human intervention.
func parseLoginPage(r io.Reader) (loginForm, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return loginForm{}, fmt.Errorf("parse login page: %w", err)
	}
	if doc.Find("#recaptcha_response_field").Length() > 0 {
		return loginForm{}, core.NewCaptchaRequired()
	}
	pie, ok := doc.Find("#pie").Attr("value")
	if !ok {
		return loginForm{}, fmt.Errorf("login page missing pie token")
	}
	etm, ok := doc.Find("#etm").Attr("value")
	if !ok {
		return loginForm{}, fmt.Errorf("login page missing etm token")
	}
	return loginForm{pie: pie, etm: etm}, nil
}

// parseLoginResponse extracts the session token and its expiry from the
// page returned by the credential post. An error block on the page means
// the server refused the login.
func parseLoginResponse(r io.Reader, now time.Time) (core.Token, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return core.Token{}, fmt.Errorf("parse login response: %w", err)
	}
	if block := doc.Find("div.messageBox.message_error span"); block.Length() > 0 {
		return core.Token{}, core.NewAuthRejected(strings.TrimSpace(block.First().Text()))
	}
	value, ok := doc.Find(`input[name="skypetoken"]`).Attr("value")
	if !ok || value == "" {
		return core.Token{}, fmt.Errorf("login response missing session token")
	}
	ttlText, ok := doc.Find(`input[name="expires_in"]`).Attr("value")
	if !ok {
		return core.Token{}, fmt.Errorf("login response missing token expiry")
	}
	ttl, err := strconv.ParseInt(ttlText, 10, 64)
	if err != nil {
		return core.Token{}, fmt.Errorf("login response expiry %q: %w", ttlText, err)
	}
	return core.Token{
		Kind:   core.TokenSession,
		Value:  value,
		Expiry: now.Add(time.Duration(ttl) * time.Second),
	}, nil
}

// timezoneField renders the local UTC offset in the form's "+HH|MM" format.
func timezoneField(now time.Time) string {
	_, offset := now.Zone()
	hours := offset / 3600
	mins := (offset % 3600) / 60
	if mins < 0 {
		mins = -mins
	}
	return fmt.Sprintf("%+03d|%d", hours, mins)
}
