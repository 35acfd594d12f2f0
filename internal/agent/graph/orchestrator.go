package graph

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/agrideliver/server/internal/agent/model"
	logx "github.com/agrideliver/server/pkg/logger"
)

// FallbackResponse is the fixed reply the chat surface shows when a turn
// fails internally. The endpoint never exposes a raw error to the
// conversational UI.
const FallbackResponse = "I'm experiencing some technical difficulties. Please try again in a moment. 🔧"

const defaultTitleMaxChars = 50

// Orchestrator is the public entry point of the conversational core: it
// loads history, runs the flow graph, persists the turn, and converts every
// internal failure into the fallback reply.
type Orchestrator struct {
	engine        *Engine
	store         model.ConversationStore
	locks         model.SessionLocker
	titleMaxChars int
}

func NewOrchestrator(engine *Engine, store model.ConversationStore, locks model.SessionLocker, convCfg model.ConversationConfig) *Orchestrator {
	titleMax := convCfg.TitleMaxChars
	if titleMax <= 0 {
		titleMax = defaultTitleMaxChars
	}
	return &Orchestrator{
		engine:        engine,
		store:         store,
		locks:         locks,
		titleMaxChars: titleMax,
	}
}

// ProcessTurn handles one user turn end to end. It never returns an error:
// classification and lookup failures already degrade inside the graph, and
// anything that escapes (generation, persistence, panics) is converted here
// into the fallback result with empty products and cart.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in model.TurnInput) (result model.TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().
				Str("user_id", in.UserID).
				Str("session_id", in.SessionID).
				Msgf("Panic while processing turn: %v", r)
			result = fallbackResult(in.SessionID)
		}
	}()

	result, err := o.processTurn(ctx, in)
	if err != nil {
		logx.Error().Err(err).
			Str("user_id", in.UserID).
			Str("session_id", in.SessionID).
			Msg("Turn failed; returning fallback reply")
		return fallbackResult(in.SessionID)
	}
	return result
}

func (o *Orchestrator) processTurn(ctx context.Context, in model.TurnInput) (model.TurnResult, error) {
	// Serialize turns per session so a double-submit cannot interleave its
	// persisted messages with ours.
	release, err := o.locks.Acquire(ctx, in.UserID, in.SessionID)
	if err != nil {
		return model.TurnResult{}, err
	}
	defer release()

	session, err := o.store.LoadSession(ctx, in.UserID, in.SessionID)
	if err != nil {
		return model.TurnResult{}, err
	}

	cart := in.Cart
	titleUnset := true
	var history []model.ConversationTurn
	if session != nil {
		history = session.Messages
		titleUnset = session.Title == ""
		if !in.CartProvided {
			cart = session.Cart
		}
	}

	messages := model.ToSchemaMessages(history)
	messages = append(messages, schema.UserMessage(in.Message))

	st, err := o.engine.Run(ctx, model.GraphState{
		Messages:  messages,
		Intent:    model.IntentGeneral,
		Cart:      model.CloneCart(cart),
		UserID:    in.UserID,
		SessionID: in.SessionID,
	})
	if err != nil {
		return model.TurnResult{}, err
	}

	userTurn := model.NewTurn(model.RoleUser, in.Message)
	assistantTurn := model.NewTurn(model.RoleAssistant, st.Response)
	if err := o.store.AppendTurnAndCart(ctx, in.UserID, in.SessionID, userTurn, assistantTurn, st.Cart); err != nil {
		return model.TurnResult{}, err
	}

	if titleUnset {
		title := TruncateTitle(in.Message, o.titleMaxChars)
		if err := o.store.SetTitleIfUnset(ctx, in.UserID, in.SessionID, title); err != nil {
			return model.TurnResult{}, err
		}
	}

	products := st.Products
	if products == nil {
		products = []model.ProductCandidate{}
	}
	resultCart := st.Cart
	if resultCart == nil {
		resultCart = []model.CartLine{}
	}

	return model.TurnResult{
		Response:  st.Response,
		Products:  products,
		Cart:      resultCart,
		Intent:    st.Intent,
		SessionID: in.SessionID,
	}, nil
}

func fallbackResult(sessionID string) model.TurnResult {
	return model.TurnResult{
		Response:  FallbackResponse,
		Products:  []model.ProductCandidate{},
		Cart:      []model.CartLine{},
		Intent:    model.IntentGeneral,
		SessionID: sessionID,
	}
}

// TruncateTitle derives a session title from the first user message:
// at most max characters, ellipsis-suffixed when truncated.
func TruncateTitle(message string, max int) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max]) + "..."
}
