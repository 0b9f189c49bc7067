package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shillcollin/skymsg/core"
)

// CachedSession is the externally persisted part of a session: the
// session token, its expiry and the messages host. It is read once at
// construction and written once after a fresh login, never mid-session.
type CachedSession struct {
	Token  string
	Expiry time.Time
	Host   string
}

// Valid reports whether the cached state can skip a fresh login.
func (c CachedSession) Valid(now time.Time) bool {
	return c.Token != "" && c.Host != "" && now.Before(c.Expiry)
}

// SessionToken converts the cached state into a token record.
func (c CachedSession) SessionToken() core.Token {
	return core.Token{Kind: core.TokenSession, Value: c.Token, Expiry: c.Expiry}
}

// ReadCache loads the three-line cache file: token, Unix expiry, host.
func ReadCache(path string) (CachedSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CachedSession{}, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		return CachedSession{}, fmt.Errorf("token cache %s: expected 3 lines, got %d", path, len(lines))
	}
	secs, err := strconv.ParseInt(lines[1], 10, 64)
	if err != nil {
		return CachedSession{}, fmt.Errorf("token cache %s: expiry %q: %w", path, lines[1], err)
	}
	return CachedSession{Token: lines[0], Expiry: time.Unix(secs, 0), Host: lines[2]}, nil
}

// WriteCache persists the cache file with owner-only permissions.
func WriteCache(path string, c CachedSession) error {
	content := fmt.Sprintf("%s\n%d\n%s\n", c.Token, c.Expiry.Unix(), c.Host)
	return os.WriteFile(path, []byte(content), 0o600)
}
