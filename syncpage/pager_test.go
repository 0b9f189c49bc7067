package syncpage

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
)

type fetchCall struct {
	url    string
	params url.Values
}

func recordingFetch(calls *[]fetchCall, pages []string, cursors []string) FetchFunc {
	i := 0
	return func(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, string, error) {
		*calls = append(*calls, fetchCall{url: rawURL, params: params})
		page, cursor := pages[i], cursors[i]
		i++
		return json.RawMessage(page), cursor, nil
	}
}

func decodeIDs(raw json.RawMessage) ([]string, error) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload.IDs, nil
}

func TestPageThreadsCursorVerbatim(t *testing.T) {
	var calls []fetchCall
	p := NewPager()
	req := Request[string]{
		Resource: "messages:8:alice",
		URL:      "https://msgs.example.com/v1/users/ME/conversations/8:alice/messages",
		Params:   url.Values{"startTime": {"0"}},
		Fetch: recordingFetch(&calls,
			[]string{`{"ids":["m1","m2"]}`, `{"ids":["m0"]}`},
			[]string{"https://msgs.example.com/sync?state=OpAqUe%3D%3D", "next2"}),
		Decode: decodeIDs,
	}

	first, err := Page(context.Background(), p, req)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || first[0] != "m1" {
		t.Fatalf("first page = %v", first)
	}
	if calls[0].url != req.URL || calls[0].params.Get("startTime") != "0" {
		t.Fatalf("first call = %+v", calls[0])
	}

	second, err := Page(context.Background(), p, req)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 || second[0] != "m0" {
		t.Fatalf("second page = %v", second)
	}
	if calls[1].url != "https://msgs.example.com/sync?state=OpAqUe%3D%3D" {
		t.Fatalf("cursor not threaded verbatim: %q", calls[1].url)
	}
	if calls[1].params != nil {
		t.Fatalf("params must not accompany a cursor call")
	}
	if p.Cursor(req.Resource) != "next2" {
		t.Fatalf("stored cursor = %q", p.Cursor(req.Resource))
	}
}

func TestPageResourcesAreIsolated(t *testing.T) {
	p := NewPager()
	fetchFor := func(cursor string, seen *[]string) FetchFunc {
		return func(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, string, error) {
			*seen = append(*seen, rawURL)
			return json.RawMessage(`{"ids":[]}`), cursor, nil
		}
	}
	var aCalls, bCalls []string
	reqA := Request[string]{Resource: "messages:a", URL: "urlA", Fetch: fetchFor("cursorA", &aCalls), Decode: decodeIDs}
	reqB := Request[string]{Resource: "messages:b", URL: "urlB", Fetch: fetchFor("cursorB", &bCalls), Decode: decodeIDs}

	for _, step := range []func() ([]string, error){
		func() ([]string, error) { return Page(context.Background(), p, reqA) },
		func() ([]string, error) { return Page(context.Background(), p, reqB) },
		func() ([]string, error) { return Page(context.Background(), p, reqA) },
		func() ([]string, error) { return Page(context.Background(), p, reqB) },
	} {
		if _, err := step(); err != nil {
			t.Fatalf("page: %v", err)
		}
	}
	if aCalls[1] != "cursorA" || bCalls[1] != "cursorB" {
		t.Fatalf("cursors crossed resources: a=%v b=%v", aCalls, bCalls)
	}
}

func TestPageFetchErrorKeepsCursor(t *testing.T) {
	p := NewPager()
	boom := errors.New("boom")
	fails := Request[string]{
		Resource: "messages:x",
		URL:      "url",
		Fetch: func(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, string, error) {
			return nil, "", boom
		},
		Decode: decodeIDs,
	}
	p.cursors["messages:x"] = "kept"

	if _, err := Page(context.Background(), p, fails); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if p.Cursor("messages:x") != "kept" {
		t.Fatalf("cursor advanced on a failed fetch: %q", p.Cursor("messages:x"))
	}
}

func TestPageReset(t *testing.T) {
	var calls []fetchCall
	p := NewPager()
	req := Request[string]{
		Resource: "recent",
		URL:      "url",
		Fetch:    recordingFetch(&calls, []string{`{"ids":[]}`, `{"ids":[]}`}, []string{"c1", "c2"}),
		Decode:   decodeIDs,
	}
	if _, err := Page(context.Background(), p, req); err != nil {
		t.Fatalf("page: %v", err)
	}
	p.Reset("recent")
	if _, err := Page(context.Background(), p, req); err != nil {
		t.Fatalf("page: %v", err)
	}
	if calls[1].url != "url" {
		t.Fatalf("reset did not restart from the first page: %q", calls[1].url)
	}
}

func TestPageValidation(t *testing.T) {
	p := NewPager()
	if _, err := Page(context.Background(), p, Request[string]{URL: "u"}); err == nil {
		t.Fatalf("expected error for missing resource")
	}
	if _, err := Page(context.Background(), p, Request[string]{Resource: "r"}); err == nil {
		t.Fatalf("expected error for missing fetch/decode")
	}
}
