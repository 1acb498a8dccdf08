package screen

import (
	"context"
	"strings"

	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/inference"
	"github.com/zhouzirui/mindscope/backend/internal/livequery"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/model/chat"
	"github.com/zhouzirui/mindscope/backend/internal/model/identity"
	"github.com/zhouzirui/mindscope/backend/internal/view"
)

// ChatState is the chat frame.
type ChatState struct {
	SignedIn  bool           `json:"signedIn"`
	SessionID string         `json:"sessionId"`
	Loading   bool           `json:"loading"`
	Sending   bool           `json:"sending"`
	Phase     string         `json:"phase"`
	Error     string         `json:"error,omitempty"`
	Messages  []view.ChatRow `json:"messages"`
}

// ChatScreen is the live chat. A new session id is minted on every
// activation, so each visit starts an empty transcript.
type ChatScreen struct {
	live
	session chat.Session
	send    Action
	sendErr string
}

// NewChat creates the controller.
func NewChat(deps *Deps) *ChatScreen {
	c := &ChatScreen{}
	c.live = live{
		deps:      deps,
		name:      Chat,
		spec:      c.spec,
		errorText: "Failed to load chat history.",
	}
	c.changed = c.Publish
	c.identityChanged = func(*identity.Identity) {
		c.send.Reset()
		c.sendErr = ""
	}
	return c
}

func (c *ChatScreen) spec(who identity.Identity) livequery.Spec {
	return livequery.Spec{
		Collection: chat.Collection,
		Filters: []docstore.Filter{
			{Field: chat.FieldOwnerID, Value: who.UID},
			{Field: chat.FieldSessionID, Value: c.session.ID},
		},
		OrderBy:   docstore.Order{Field: chat.FieldCreatedAt, Direction: docstore.Ascending},
		Principal: who.UID,
	}
}

func (c *ChatScreen) Name() Name { return Chat }

func (c *ChatScreen) Activate() {
	if c.active {
		return
	}
	c.session = chat.NewSession()
	c.activate()
}

// Deactivate tears down the subscription; a reply still in flight will be
// written but no longer shown.
func (c *ChatScreen) Deactivate() {
	c.deactivate()
	c.send.Reset()
	c.sendErr = ""
}

func (c *ChatScreen) DismissError() {
	if c.sendErr == "" {
		c.dismissError()
		return
	}
	c.sendErr = ""
	c.err = ""
	c.Publish()
}

// SessionID returns the current chat session.
func (c *ChatScreen) SessionID() string { return c.session.ID }

// Send writes the user turn, asks the backend, and writes the reply or the
// fallback. Blank input, a pending send, or no identity make it a no-op.
func (c *ChatScreen) Send(text string) {
	text = strings.TrimSpace(text)
	if text == "" || !c.active || c.identity == nil {
		return
	}
	ticket, ok := c.send.Begin()
	if !ok {
		return
	}
	c.sendErr = ""
	c.Publish()

	var (
		store     = c.deps.Store
		client    = c.deps.Inference
		who       = *c.identity
		sessionID = c.session.ID
		history   = c.recentTurns()
	)

	c.deps.spawn(func() {
		ctx := context.Background()
		err := exchange(ctx, store, client, who, sessionID, text, history)
		c.deps.Loop.Post(func() { c.finishSend(ticket, err) })
	})
}

func (c *ChatScreen) finishSend(ticket uint64, err error) {
	if !c.send.Finish(ticket, err) {
		return
	}
	if err != nil {
		c.sendErr = "Couldn't reach the assistant. Please try again."
	}
	c.Publish()
}

// exchange runs off the loop. The user turn is always written first; once
// it is, exactly one assistant turn follows.
func exchange(ctx context.Context, store docstore.Store, client Inference, who identity.Identity, sessionID, text string, history []chat.Turn) error {
	user := chat.Message{OwnerID: who.UID, SessionID: sessionID, Role: chat.RoleUser, Content: text}
	if _, err := store.Add(ctx, who.UID, chat.Collection, user.Fields()); err != nil {
		logging.L().Errorw("[screen] write user message failed", "session", sessionID, "error", err)
		return err
	}

	reply := chat.Message{OwnerID: who.UID, SessionID: sessionID, Role: chat.RoleAssistant}
	resp, callErr := client.Converse(ctx, text, history)
	if callErr != nil {
		logging.L().Warnw("[screen] chat backend failed, writing fallback", "session", sessionID, "error", callErr)
		reply.Content = chat.FallbackReply
	} else {
		reply.Content = resp.Reply
		reply.Crisis = resp.Crisis
	}

	if _, err := store.Add(ctx, who.UID, chat.Collection, reply.Fields()); err != nil {
		logging.L().Errorw("[screen] write assistant message failed", "session", sessionID, "error", err)
		return err
	}
	return callErr
}

func (c *ChatScreen) recentTurns() []chat.Turn {
	turns := make([]chat.Turn, 0, len(c.docs))
	for _, doc := range c.docs {
		row := view.ProjectChat(doc)
		turns = append(turns, chat.Turn{Role: row.Role, Content: row.Content})
	}
	return inference.TrimHistory(turns)
}

func (c *ChatScreen) State() ChatState {
	rows := make([]view.ChatRow, 0, len(c.docs))
	for _, doc := range c.docs {
		rows = append(rows, view.ProjectChat(doc))
	}
	errText := c.err
	if c.sendErr != "" {
		errText = c.sendErr
	}
	return ChatState{
		SignedIn:  c.signedIn(),
		SessionID: c.session.ID,
		Loading:   c.loading,
		Sending:   c.send.Phase() == Pending,
		Phase:     c.send.Phase().String(),
		Error:     errText,
		Messages:  rows,
	}
}

func (c *ChatScreen) Publish() {
	c.deps.publish(Chat, c.State())
}
