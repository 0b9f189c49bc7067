package skymsg

import (
	"encoding/json"
	"fmt"
)

// Message is a single chat message as the wire returns it. Timestamps are
// kept in their wire form (RFC 3339 with fractional seconds).
type Message struct {
	ID               string `json:"id,omitempty"`
	ClientID         string `json:"clientmessageid,omitempty"`
	EditedID         string `json:"skypeeditedid,omitempty"`
	Type             string `json:"messagetype"`
	ContentType      string `json:"contenttype"`
	Content          string `json:"content"`
	From             string `json:"from,omitempty"`
	ConversationLink string `json:"conversationLink,omitempty"`
	ComposeTime      string `json:"composetime,omitempty"`
	ArrivalTime      string `json:"originalarrivaltime,omitempty"`
}

// decodeMessages extracts the message list from a raw history page.
func decodeMessages(raw json.RawMessage) ([]Message, error) {
	var payload struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode messages page: %w", err)
	}
	return payload.Messages, nil
}
