package graph

import (
	"context"

	"github.com/agrideliver/server/internal/agent/model"
	logx "github.com/agrideliver/server/pkg/logger"
)

// Step names mirror the flow-graph nodes. The graph is static and linear:
// one entry (classification), at most one data-fetch branch, and exactly one
// exit through response generation. That makes a generic graph engine
// unnecessary machinery, so dispatch is an explicit routing table over pure
// step functions instead.
const (
	StepFetchProducts    = "fetch_products"
	StepFetchKnowledge   = "fetch_knowledge"
	StepFetchOrders      = "fetch_orders"
	StepHandleCart       = "handle_cart"
	StepGenerateResponse = "generate_response"
)

// routeTable maps each classified intent to the step following
// process_input. fetch_products always chains into handle_cart (a no-op
// unless the intent mutates the cart), and every path converges on
// generate_response.
var routeTable = map[model.Intent]string{
	model.IntentSearchProduct:  StepFetchProducts,
	model.IntentAddToCart:      StepFetchProducts,
	model.IntentRemoveFromCart: StepHandleCart,
	model.IntentViewCart:       StepGenerateResponse,
	model.IntentCheckout:       StepGenerateResponse,
	model.IntentFAQ:            StepFetchKnowledge,
	model.IntentOrderStatus:    StepFetchOrders,
	model.IntentGeneral:        StepGenerateResponse,
}

// RouteIntent returns the step that follows intent classification.
func RouteIntent(intent model.Intent) string {
	if next, ok := routeTable[intent]; ok {
		return next
	}
	return StepGenerateResponse
}

// Engine executes the flow graph for one turn. It owns no per-turn state:
// everything a step needs travels inside the GraphState value.
type Engine struct {
	classifier      *Classifier
	catalog         model.CatalogGateway
	responder       model.ChatModel
	responderName   string
	promptCfg       model.ResponsePromptConfig
	catalogCfg      model.CatalogConfig
	historyMaxTurns int
}

// EngineConfig wires the engine's collaborators and tuning knobs.
type EngineConfig struct {
	Classifier    *Classifier
	Catalog       model.CatalogGateway
	Responder     model.ChatModel
	ResponderName string
	Prompt        model.ResponsePromptConfig
	CatalogLimits model.CatalogConfig
	Conversation  model.ConversationConfig
}

func NewEngine(cfg EngineConfig) *Engine {
	maxTurns := cfg.Conversation.HistoryMaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	return &Engine{
		classifier:      cfg.Classifier,
		catalog:         cfg.Catalog,
		responder:       cfg.Responder,
		responderName:   cfg.ResponderName,
		promptCfg:       cfg.Prompt,
		catalogCfg:      cfg.CatalogLimits,
		historyMaxTurns: maxTurns,
	}
}

// Run executes one complete pass of the flow graph: classify the latest user
// message, dispatch to the intent's fetch/cart branch, then generate the
// reply. Only response generation can fail; fetch steps degrade internally.
func (e *Engine) Run(ctx context.Context, st model.GraphState) (model.GraphState, error) {
	result := e.classifier.Classify(ctx, lastUserContent(st.Messages))
	st.Intent = result.Intent
	st.Entities = result.Entities

	next := RouteIntent(st.Intent)
	logx.Debug().
		Str("session_id", st.SessionID).
		Str("intent", string(st.Intent)).
		Str("next_step", next).
		Msg("Routing turn")

	switch next {
	case StepFetchProducts:
		st = e.fetchProducts(ctx, st)
		st = e.handleCart(ctx, st)
	case StepHandleCart:
		st = e.handleCart(ctx, st)
	case StepFetchKnowledge:
		st = e.fetchKnowledge(ctx, st)
	case StepFetchOrders:
		st = e.fetchOrders(ctx, st)
	}

	return e.generateResponse(ctx, st)
}
