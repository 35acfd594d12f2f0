package model

import (
	"github.com/cloudwego/eino/schema"
)

// GraphState is the per-turn state threaded through the flow graph. It is
// built fresh for every turn from the persisted history plus the new user
// message, passed by value through the step sequence, and discarded once the
// final reply and cart have been extracted.
//
// Steps never share state across turns and never mutate their input: each
// step returns a new value with its own fields filled in, which keeps every
// step pure and testable in isolation.
type GraphState struct {
	// Messages is the conversation history plus the new user turn.
	Messages []*schema.Message

	Intent   Intent
	Entities Entities

	// Products holds the candidate list produced by the product fetch step.
	Products []ProductCandidate

	// Cart is the in-flight cart value; written back to the session only
	// after the turn completes successfully.
	Cart []CartLine

	UserID    string
	SessionID string

	// Context carries retrieved knowledge or order text for the response
	// prompt, empty when no retrieval ran.
	Context string

	// Response is the final assistant reply set by the terminal step.
	Response string
}

// TurnInput is the public input for processing one user turn.
type TurnInput struct {
	Message   string
	UserID    string
	SessionID string

	// Cart overrides the session's stored cart when CartProvided is true.
	Cart         []CartLine
	CartProvided bool
}

// TurnResult is what one processed turn returns to the transport layer.
type TurnResult struct {
	Response  string             `json:"response"`
	Products  []ProductCandidate `json:"products"`
	Cart      []CartLine         `json:"cart"`
	Intent    Intent             `json:"intent"`
	SessionID string             `json:"chatId"`
}
