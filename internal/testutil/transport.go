// Package testutil provides fakes shared by package tests.
package testutil

import (
	"io"
	"net/http"
	"strings"
)

// Step describes one scripted exchange: either a response or a
// connection-level error.
type Step struct {
	Status int
	Body   string
	Header http.Header
	Err    error
}

// ScriptedTransport replays a fixed sequence of steps and records every
// request it sees, including consumed bodies.
type ScriptedTransport struct {
	Steps []Step

	Requests []*http.Request
	Bodies   []string
}

func (s *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		req.Body.Close()
		body = string(data)
	}
	s.Requests = append(s.Requests, req)
	s.Bodies = append(s.Bodies, body)

	if len(s.Steps) == 0 {
		return Response(599, "scripted transport exhausted", nil), nil
	}
	step := s.Steps[0]
	s.Steps = s.Steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	return Response(step.Status, step.Body, step.Header), nil
}

// Response builds an *http.Response with the given status, body and headers.
func Response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}
