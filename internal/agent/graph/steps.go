package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/agrideliver/server/internal/agent/graph/prompts"
	"github.com/agrideliver/server/internal/agent/model"
	logx "github.com/agrideliver/server/pkg/logger"
)

// Context strings the order step emits. The response model rephrases them,
// so they stay plain and user-readable.
const (
	orderNotFoundContext    = "Order not found. Please check your order ID."
	noOrdersContext         = "You don't have any orders yet."
	orderLookupErrorContext = "Unable to fetch order information at this time."
	noKnowledgeContext      = "No specific information found."
)

// fetchProducts resolves product candidates for search and add-to-cart
// turns. Gateway errors are swallowed into an empty candidate list; a failed
// lookup must never abort the turn.
func (e *Engine) fetchProducts(ctx context.Context, st model.GraphState) model.GraphState {
	var (
		products []model.ProductCandidate
		err      error
	)

	switch {
	case st.Intent == model.IntentSearchProduct && st.Entities.Category != "":
		products, err = e.catalog.ProductsByCategory(ctx, st.Entities.Category, e.catalogCfg.SearchLimit)
	case st.Entities.ProductName != "":
		products, err = e.catalog.SearchProducts(ctx, st.Entities.ProductName, e.catalogCfg.SearchLimit)
	default:
		products, err = e.catalog.RecommendedProducts(ctx, e.catalogCfg.RecommendLimit)
	}
	if err != nil {
		logx.Error().Err(err).
			Str("session_id", st.SessionID).
			Str("intent", string(st.Intent)).
			Msg("Product fetch failed; continuing with empty candidates")
		products = nil
	}

	st.Products = products
	return st
}

// fetchKnowledge free-text matches the curated knowledge base against the
// user's message. Lookup failures degrade to the no-match context string.
func (e *Engine) fetchKnowledge(ctx context.Context, st model.GraphState) model.GraphState {
	query := lastUserContent(st.Messages)

	knowledge, err := e.catalog.LookupKnowledge(ctx, query)
	if err != nil {
		logx.Error().Err(err).
			Str("session_id", st.SessionID).
			Msg("Knowledge lookup failed; continuing without context")
		knowledge = ""
	}
	if knowledge == "" {
		knowledge = noKnowledgeContext
	}

	st.Context = knowledge
	return st
}

// fetchOrders builds order context: a specific order when the classifier
// extracted an order ID, otherwise the user's recent orders. Lookups are
// always scoped to the requesting user.
func (e *Engine) fetchOrders(ctx context.Context, st model.GraphState) model.GraphState {
	if st.Entities.OrderID != "" {
		order, err := e.catalog.LookupOrder(ctx, st.Entities.OrderID, st.UserID)
		switch {
		case err != nil:
			logx.Error().Err(err).
				Str("session_id", st.SessionID).
				Msg("Order lookup failed")
			st.Context = orderLookupErrorContext
		case order == nil:
			st.Context = orderNotFoundContext
		default:
			st.Context = fmt.Sprintf("Order %s: Status - %s, Total - ₹%.2f, Items - %d, Date - %s",
				order.ID, order.Status, order.Total, order.ItemCount, order.PlacedAt.Format("02 Jan 2006"))
		}
		return st
	}

	orders, err := e.catalog.ListRecentOrders(ctx, st.UserID, e.catalogCfg.RecentOrders)
	if err != nil {
		logx.Error().Err(err).
			Str("session_id", st.SessionID).
			Msg("Recent order listing failed")
		st.Context = orderLookupErrorContext
		return st
	}
	if len(orders) == 0 {
		st.Context = noOrdersContext
		return st
	}

	lines := make([]string, 0, len(orders))
	for i, o := range orders {
		lines = append(lines, fmt.Sprintf("%d. Order %s: %s - ₹%.2f - %s",
			i+1, shortOrderID(o.ID), o.Status, o.Total, o.PlacedAt.Format("02 Jan 2006")))
	}
	st.Context = strings.Join(lines, "\n")
	return st
}

// handleCart applies the pure cart reducer to the in-flight cart.
func (e *Engine) handleCart(_ context.Context, st model.GraphState) model.GraphState {
	st.Cart = ReduceCart(st.Cart, st.Intent, st.Entities, st.Products)
	return st
}

// generateResponse composes the final reply from accumulated state via one
// completion call. Unlike the fetch steps, a failure here propagates so the
// orchestrator can substitute the fallback reply.
func (e *Engine) generateResponse(ctx context.Context, st model.GraphState) (model.GraphState, error) {
	systemPrompt, err := prompts.RenderResponseSystem(ctx, e.promptCfg, st)
	if err != nil {
		return st, err
	}

	history := trimTail(st.Messages, e.historyMaxTurns)
	input := make([]*schema.Message, 0, len(history)+1)
	input = append(input, schema.SystemMessage(systemPrompt))
	input = append(input, history...)

	out, err := e.responder.Generate(ctx, input)
	if err != nil {
		return st, fmt.Errorf("response generation: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return st, fmt.Errorf("response generation: empty completion")
	}
	logUsage(st.SessionID, StepGenerateResponse, e.responderName, out)

	st.Response = strings.TrimSpace(out.Content)
	return st, nil
}

// ====================== Helper functions ======================

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

// trimTail returns a copy of the last maxTurns messages.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}

// shortOrderID trims a Mongo object ID down to its display suffix.
func shortOrderID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
