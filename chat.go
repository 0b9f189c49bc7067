package skymsg

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shillcollin/skymsg/session"
	"github.com/shillcollin/skymsg/syncpage"
)

// Chat is a single conversation. The zero fields beyond ID are populated
// only for group conversations, from the thread resource.
type Chat struct {
	client *Client

	ID         string
	Topic      string
	CreatorID  string
	UserIDs    []string
	AdminIDs   []string
	Open       bool
	History    bool
	PictureURL string

	group bool
}

// Group reports whether this is a multi-user conversation with thread
// properties (topic, membership, join settings).
func (ch *Chat) Group() bool { return ch.group }

func (ch *Chat) messagesURL() string {
	return ch.client.Host() + "/conversations/" + ch.ID + "/messages"
}

func (ch *Chat) threadURL() string {
	return ch.client.Host() + "/threads/" + ch.ID
}

// Messages returns the next page of this conversation's history, most
// recent first. Successive calls continue from the server-issued cursor.
func (ch *Chat) Messages(ctx context.Context) ([]Message, error) {
	c := ch.client
	var msgs []Message
	err := c.resilient.Do(ctx, func(ctx context.Context) error {
		var err error
		msgs, err = syncpage.Page(ctx, c.pager, syncpage.Request[Message]{
			Resource: "messages:" + ch.ID,
			URL:      ch.messagesURL(),
			Params:   historyParams(),
			Fetch:    c.fetchPage,
			Decode:   decodeMessages,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send posts a plain text message and returns the sent message with its
// client id and compose time filled in.
func (ch *Chat) Send(ctx context.Context, content string) (Message, error) {
	return ch.sendRaw(ctx, map[string]any{"content": content})
}

// SendRich posts a message whose content carries the service's rich-text
// markup.
func (ch *Chat) SendRich(ctx context.Context, content string) (Message, error) {
	return ch.sendRaw(ctx, map[string]any{
		"content":     content,
		"messagetype": "RichText",
	})
}

// SendAction posts a third-person action message ("/me waves"). The wire
// renders these as the sender's name followed by the action text, with
// skypeemoteoffset marking where the name ends.
func (ch *Chat) SendAction(ctx context.Context, content string) (Message, error) {
	name := ch.client.username
	return ch.sendRaw(ctx, map[string]any{
		"content":          name + " " + content,
		"skypeemoteoffset": len(name) + 1,
	})
}

// Edit replaces the content of a previously sent message, addressed by the
// client id returned from Send.
func (ch *Chat) Edit(ctx context.Context, clientID, content string) (Message, error) {
	return ch.sendRaw(ctx, map[string]any{
		"content":       content,
		"skypeeditedid": clientID,
	})
}

// sendRaw posts one message payload. fields overrides the defaults, which
// produce a plain text message stamped with a fresh client message id.
func (ch *Chat) sendRaw(ctx context.Context, fields map[string]any) (Message, error) {
	c := ch.client
	now := c.now()

	payload := map[string]any{
		"contenttype": "text",
		"messagetype": "Text",
	}
	for k, v := range fields {
		payload[k] = v
	}
	// Control messages (typing indicators) and edits carry no client
	// message id; everything else is stamped with one.
	_, edited := payload["skypeeditedid"]
	msgType, _ := payload["messagetype"].(string)
	if !edited && !strings.HasPrefix(msgType, "Control/") {
		payload["clientmessageid"] = strconv.FormatInt(now.UnixMilli(), 10)
	}

	err := c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "POST", ch.messagesURL(), session.CallOptions{
			JSON: payload,
		}, nil)
	})
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		Type:             payload["messagetype"].(string),
		ContentType:      payload["contenttype"].(string),
		ComposeTime:      now.UTC().Format("2006-01-02T15:04:05.000Z"),
		ConversationLink: c.Host() + "/conversations/" + ch.ID,
	}
	if content, ok := payload["content"].(string); ok {
		msg.Content = content
	}
	if id, ok := payload["clientmessageid"].(string); ok {
		msg.ClientID = id
	}
	if id, ok := payload["skypeeditedid"].(string); ok {
		msg.EditedID = id
	}
	return msg, nil
}

// SetTyping broadcasts a typing indicator; active false clears it.
func (ch *Chat) SetTyping(ctx context.Context, active bool) error {
	msgType := "Control/Typing"
	if !active {
		msgType = "Control/ClearTyping"
	}
	_, err := ch.sendRaw(ctx, map[string]any{"messagetype": msgType})
	return err
}

// Delete removes the conversation's history for this account.
func (ch *Chat) Delete(ctx context.Context) error {
	c := ch.client
	return c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "DELETE", ch.messagesURL(), session.CallOptions{}, nil)
	})
}

// setProperty updates one named thread property. Group conversations only.
func (ch *Chat) setProperty(ctx context.Context, name string, value any) error {
	if !ch.group {
		return fmt.Errorf("conversation %s has no thread properties", ch.ID)
	}
	c := ch.client
	return c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "PUT", ch.threadURL()+"/properties", session.CallOptions{
			Params: url.Values{"name": {name}},
			JSON:   map[string]any{name: value},
		}, nil)
	})
}

// SetTopic renames the conversation.
func (ch *Chat) SetTopic(ctx context.Context, topic string) error {
	if err := ch.setProperty(ctx, "topic", topic); err != nil {
		return err
	}
	ch.Topic = topic
	return nil
}

// SetOpen controls whether the conversation can be joined via link.
func (ch *Chat) SetOpen(ctx context.Context, open bool) error {
	if err := ch.setProperty(ctx, "joiningenabled", strconv.FormatBool(open)); err != nil {
		return err
	}
	ch.Open = open
	return nil
}

// SetHistory controls whether history is disclosed to new members.
func (ch *Chat) SetHistory(ctx context.Context, history bool) error {
	if err := ch.setProperty(ctx, "historydisclosed", strconv.FormatBool(history)); err != nil {
		return err
	}
	ch.History = history
	return nil
}

// AddMember adds a user to a group conversation, optionally as admin.
func (ch *Chat) AddMember(ctx context.Context, userID string, admin bool) error {
	if !ch.group {
		return fmt.Errorf("conversation %s has no membership", ch.ID)
	}
	role := "User"
	if admin {
		role = "Admin"
	}
	c := ch.client
	return c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "PUT", ch.threadURL()+"/members/"+userRef(userID), session.CallOptions{
			JSON: map[string]any{"role": role},
		}, nil)
	})
}

// Leave removes this account from the conversation.
func (ch *Chat) Leave(ctx context.Context) error {
	return ch.RemoveMember(ctx, ch.client.username)
}

// RemoveMember removes a user from a group conversation.
func (ch *Chat) RemoveMember(ctx context.Context, userID string) error {
	if !ch.group {
		return fmt.Errorf("conversation %s has no membership", ch.ID)
	}
	c := ch.client
	return c.resilient.Do(ctx, func(ctx context.Context) error {
		return c.callJSON(ctx, "DELETE", ch.threadURL()+"/members/"+userRef(userID), session.CallOptions{}, nil)
	})
}
