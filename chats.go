package skymsg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shillcollin/skymsg/session"
	"github.com/shillcollin/skymsg/syncpage"
)

// Chats is the container for conversation lookup and creation.
type Chats struct {
	client *Client
}

// conversationRecord is the wire shape of one conversation entry.
type conversationRecord struct {
	ID               string   `json:"id"`
	LastMessage      *Message `json:"lastMessage"`
	ThreadProperties *struct {
		Topic            string `json:"topic"`
		JoiningEnabled   string `json:"joiningenabled"`
		HistoryDisclosed string `json:"historydisclosed"`
	} `json:"threadProperties"`
}

// threadInfo is the wire shape of the thread detail resource, which carries
// the member list and properties a group conversation entry omits.
type threadInfo struct {
	ID         string `json:"id"`
	Properties struct {
		Topic            string `json:"topic"`
		Creator          string `json:"creator"`
		JoiningEnabled   string `json:"joiningenabled"`
		HistoryDisclosed string `json:"historydisclosed"`
		Picture          string `json:"picture"`
	} `json:"properties"`
	Members []struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"members"`
}

func decodeConversations(raw json.RawMessage) ([]conversationRecord, error) {
	var payload struct {
		Conversations []conversationRecord `json:"conversations"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode conversations page: %w", err)
	}
	return payload.Conversations, nil
}

// Recent returns the next page of recently active conversations. Successive
// calls continue from the server-issued cursor. Group conversations are
// enriched with topic and membership from the thread resource.
func (cs *Chats) Recent(ctx context.Context) ([]*Chat, error) {
	c := cs.client
	var records []conversationRecord
	err := c.resilient.Do(ctx, func(ctx context.Context) error {
		var err error
		records, err = syncpage.Page(ctx, c.pager, syncpage.Request[conversationRecord]{
			Resource: "conversations",
			URL:      c.Host() + "/conversations",
			Params:   historyParams(),
			Fetch:    c.fetchPage,
			Decode:   decodeConversations,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	chats := make([]*Chat, 0, len(records))
	for _, rec := range records {
		ch, err := cs.fromRecord(ctx, rec)
		if err != nil {
			return nil, err
		}
		chats = append(chats, ch)
	}
	return chats, nil
}

// Chat fetches a single conversation by id.
func (cs *Chats) Chat(ctx context.Context, id string) (*Chat, error) {
	c := cs.client
	var rec conversationRecord
	err := c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "GET", c.Host()+"/conversations/"+id, session.CallOptions{
			Params: historyParams(),
		}, &rec)
	})
	if err != nil {
		return nil, err
	}
	return cs.fromRecord(ctx, rec)
}

// Create starts a new group conversation with the given members. Members
// listed in admins are granted the admin role; the rest join as users.
func (cs *Chats) Create(ctx context.Context, members []string, admins []string) (*Chat, error) {
	c := cs.client
	adminSet := make(map[string]bool, len(admins))
	for _, id := range admins {
		adminSet[id] = true
	}
	type memberEntry struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	entries := make([]memberEntry, 0, len(members))
	for _, id := range members {
		role := "User"
		if adminSet[id] {
			role = "Admin"
		}
		entries = append(entries, memberEntry{ID: userRef(id), Role: role})
	}

	var threadID string
	err := c.resilient.Do(ctx, func(ctx context.Context) error {
		resp, err := c.exec.Do(ctx, "POST", c.Host()+"/threads", session.CallOptions{
			Auth: session.AuthRegistration,
			JSON: map[string]any{"members": entries},
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		loc := resp.Header.Get("Location")
		if loc == "" {
			return fmt.Errorf("thread creation response missing Location header")
		}
		threadID = loc[strings.LastIndex(loc, "/")+1:]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cs.Chat(ctx, threadID)
}

// fromRecord builds a Chat, fetching thread detail for group conversations.
func (cs *Chats) fromRecord(ctx context.Context, rec conversationRecord) (*Chat, error) {
	ch := &Chat{client: cs.client, ID: rec.ID}
	if rec.ThreadProperties == nil {
		return ch, nil
	}
	ch.group = true

	c := cs.client
	var info threadInfo
	err := c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "GET", c.Host()+"/threads/"+rec.ID, session.CallOptions{
			Params: historyParams(),
		}, &info)
	})
	if err != nil {
		return nil, err
	}

	ch.Topic = info.Properties.Topic
	ch.CreatorID = stripUserRef(info.Properties.Creator)
	ch.Open = info.Properties.JoiningEnabled == "true"
	ch.History = info.Properties.HistoryDisclosed == "true"
	// The wire prefixes the picture location with a "URL@" marker.
	ch.PictureURL = strings.TrimPrefix(info.Properties.Picture, "URL@")
	for _, m := range info.Members {
		id := stripUserRef(m.ID)
		ch.UserIDs = append(ch.UserIDs, id)
		if strings.EqualFold(m.Role, "admin") {
			ch.AdminIDs = append(ch.AdminIDs, id)
		}
	}
	return ch, nil
}

// userRef renders a bare user id in the wire's prefixed form.
func userRef(id string) string { return "8:" + id }

func stripUserRef(ref string) string {
	if i := strings.Index(ref, ":"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
