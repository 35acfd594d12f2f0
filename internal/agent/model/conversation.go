package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Turn roles as persisted in the session document.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one persisted message. Turns are immutable once
// appended and ordered within their session.
type ConversationTurn struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Session is a persisted, titled conversation thread with its own cart
// snapshot. Identity is (UserID, SessionID); exactly one document exists per
// pair (upsert semantics).
type Session struct {
	UserID    string             `json:"userId" bson:"user_id"`
	SessionID string             `json:"chatId" bson:"chat_id"`
	Title     string             `json:"title" bson:"title"`
	Messages  []ConversationTurn `json:"messages" bson:"messages"`
	Cart      []CartLine         `json:"cart" bson:"cart"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SessionSummary is the listing projection used by the session sidebar.
type SessionSummary struct {
	SessionID    string    `json:"chatId"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ConversationStore is the persistence boundary for sessions. The core only
// appends turns and replaces the cart snapshot; it never deletes sessions.
type ConversationStore interface {
	// LoadSession returns the session for (userID, sessionID), or (nil, nil)
	// when no session exists yet.
	LoadSession(ctx context.Context, userID, sessionID string) (*Session, error)

	// AppendTurnAndCart appends the user and assistant turns and replaces
	// the cart snapshot in a single durable write, creating the session
	// when it does not exist.
	AppendTurnAndCart(ctx context.Context, userID, sessionID string, userTurn, assistantTurn ConversationTurn, cart []CartLine) error

	// SetTitleIfUnset sets the session title only when no title has been
	// set before.
	SetTitleIfUnset(ctx context.Context, userID, sessionID, title string) error

	// ListSessions returns the user's sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string) ([]SessionSummary, error)
}

// SessionLocker serializes turns per (userID, sessionID) so concurrent
// submissions cannot interleave their persisted messages. Acquire blocks
// until the lock is held or the configured wait expires; the returned
// release must be called exactly once.
type SessionLocker interface {
	Acquire(ctx context.Context, userID, sessionID string) (release func(), err error)
}

// ToSchemaMessages converts persisted turns into model input messages.
func ToSchemaMessages(turns []ConversationTurn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		}
	}
	return msgs
}

// NewTurn builds a turn stamped with the current UTC time.
func NewTurn(role, content string) ConversationTurn {
	return ConversationTurn{Role: role, Content: content, Timestamp: time.Now().UTC()}
}
