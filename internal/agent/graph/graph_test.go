package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrideliver/server/internal/agent/model"
)

// fakeChatModel returns scripted completions, or an error when set.
type fakeChatModel struct {
	reply func(input []*schema.Message) string
	err   error
	calls int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply(input), nil), nil
}

func staticReply(content string) *fakeChatModel {
	return &fakeChatModel{reply: func([]*schema.Message) string { return content }}
}

// echoSystemPrompt lets tests assert on what the response step fed the model.
func echoSystemPrompt() *fakeChatModel {
	return &fakeChatModel{reply: func(input []*schema.Message) string {
		for _, m := range input {
			if m.Role == schema.System {
				return m.Content
			}
		}
		return ""
	}}
}

type fakeCatalog struct {
	searchResults    []model.ProductCandidate
	categoryResults  []model.ProductCandidate
	recommendResults []model.ProductCandidate
	knowledge        string
	order            *model.OrderSummary
	recentOrders     []model.OrderSummary
	err              error

	searchQueries    []string
	categoryQueries  []string
	recommendCalls   int
	knowledgeQueries []string
	orderLookups     []string
}

func (f *fakeCatalog) SearchProducts(_ context.Context, query string, _ int) ([]model.ProductCandidate, error) {
	f.searchQueries = append(f.searchQueries, query)
	return f.searchResults, f.err
}

func (f *fakeCatalog) ProductsByCategory(_ context.Context, category string, _ int) ([]model.ProductCandidate, error) {
	f.categoryQueries = append(f.categoryQueries, category)
	return f.categoryResults, f.err
}

func (f *fakeCatalog) RecommendedProducts(_ context.Context, _ int) ([]model.ProductCandidate, error) {
	f.recommendCalls++
	return f.recommendResults, f.err
}

func (f *fakeCatalog) LookupKnowledge(_ context.Context, query string) (string, error) {
	f.knowledgeQueries = append(f.knowledgeQueries, query)
	return f.knowledge, f.err
}

func (f *fakeCatalog) LookupOrder(_ context.Context, orderID, _ string) (*model.OrderSummary, error) {
	f.orderLookups = append(f.orderLookups, orderID)
	return f.order, f.err
}

func (f *fakeCatalog) ListRecentOrders(_ context.Context, _ string, _ int) ([]model.OrderSummary, error) {
	return f.recentOrders, f.err
}

func classifierReply(intent string, confidence float64, entities string) string {
	return fmt.Sprintf(`{"intent":%q,"confidence":%v,"entities":%s}`, intent, confidence, entities)
}

func newTestEngine(classifier *fakeChatModel, catalog *fakeCatalog, responder *fakeChatModel) *Engine {
	return NewEngine(EngineConfig{
		Classifier:    NewClassifier(classifier, "test-classifier"),
		Catalog:       catalog,
		Responder:     responder,
		ResponderName: "test-responder",
		Prompt:        model.ResponsePromptConfig{BusinessType: "agriculture eCommerce", BusinessName: "AgriDeliver"},
		CatalogLimits: model.CatalogConfig{SearchLimit: 6, RecommendLimit: 4, RecentOrders: 3},
	})
}

func turnState(userText string) model.GraphState {
	return model.GraphState{
		Messages:  []*schema.Message{schema.UserMessage(userText)},
		Intent:    model.IntentGeneral,
		UserID:    "farmer-1",
		SessionID: "chat-1",
	}
}

func TestRouteIntentTable(t *testing.T) {
	tests := []struct {
		intent model.Intent
		next   string
	}{
		{model.IntentSearchProduct, StepFetchProducts},
		{model.IntentAddToCart, StepFetchProducts},
		{model.IntentRemoveFromCart, StepHandleCart},
		{model.IntentViewCart, StepGenerateResponse},
		{model.IntentCheckout, StepGenerateResponse},
		{model.IntentFAQ, StepFetchKnowledge},
		{model.IntentOrderStatus, StepFetchOrders},
		{model.IntentGeneral, StepGenerateResponse},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.next, RouteIntent(tt.intent), "intent %s", tt.intent)
	}

	// Intents outside the closed set can never reach routing, but the
	// dispatch itself still has a safe default.
	assert.Equal(t, StepGenerateResponse, RouteIntent(model.Intent("bogus")))
}

func TestEngineSearchSurfacesCandidates(t *testing.T) {
	classifier := staticReply(classifierReply("search_product", 0.9, `{"productName":"wheat seeds"}`))
	catalog := &fakeCatalog{searchResults: []model.ProductCandidate{
		{ID: "p1", Name: "Wheat Seeds Premium", Price: 120},
	}}
	responder := echoSystemPrompt()
	engine := newTestEngine(classifier, catalog, responder)

	st, err := engine.Run(context.Background(), turnState("do you have wheat seeds?"))
	require.NoError(t, err)

	assert.Equal(t, model.IntentSearchProduct, st.Intent)
	require.Len(t, st.Products, 1)
	assert.Equal(t, []string{"wheat seeds"}, catalog.searchQueries)

	// The response prompt must carry the candidate's name and price.
	assert.Contains(t, st.Response, "Wheat Seeds Premium")
	assert.Contains(t, st.Response, "₹120.00")
}

func TestEngineSearchByCategory(t *testing.T) {
	classifier := staticReply(classifierReply("search_product", 0.9, `{"category":"seeds"}`))
	catalog := &fakeCatalog{categoryResults: []model.ProductCandidate{{ID: "p1", Name: "Wheat Seeds", Price: 120}}}
	engine := newTestEngine(classifier, catalog, staticReply("here you go"))

	st, err := engine.Run(context.Background(), turnState("show me seeds"))
	require.NoError(t, err)

	assert.Equal(t, []string{"seeds"}, catalog.categoryQueries)
	assert.Empty(t, catalog.searchQueries)
	require.Len(t, st.Products, 1)
}

func TestEngineSearchWithoutEntitiesRecommends(t *testing.T) {
	classifier := staticReply(classifierReply("search_product", 0.6, `{}`))
	catalog := &fakeCatalog{recommendResults: []model.ProductCandidate{{ID: "p9", Name: "Neem Oil", Price: 80}}}
	engine := newTestEngine(classifier, catalog, staticReply("try these"))

	st, err := engine.Run(context.Background(), turnState("what do you sell?"))
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.recommendCalls)
	require.Len(t, st.Products, 1)
}

func TestEngineAddToCartEndToEnd(t *testing.T) {
	classifier := staticReply(classifierReply("add_to_cart", 0.95, `{"productName":"wheat seeds","quantity":2}`))
	catalog := &fakeCatalog{searchResults: []model.ProductCandidate{{ID: "p1", Name: "Wheat Seeds", Price: 120}}}
	engine := newTestEngine(classifier, catalog, staticReply("added!"))

	st := turnState("add 2 more wheat seeds")
	st.Cart = []model.CartLine{{ProductID: "p1", Name: "Wheat Seeds", Price: 120, Quantity: 1}}

	out, err := engine.Run(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, out.Cart, 1)
	assert.Equal(t, 3, out.Cart[0].Quantity)
	assert.Equal(t, "added!", out.Response)
}

func TestEngineRemoveFromCartSkipsFetch(t *testing.T) {
	classifier := staticReply(classifierReply("remove_from_cart", 0.9, `{"productName":"fertilizer"}`))
	catalog := &fakeCatalog{}
	engine := newTestEngine(classifier, catalog, staticReply("removed"))

	st := turnState("remove the fertilizer")
	st.Cart = []model.CartLine{
		{ProductID: "p1", Name: "Organic Fertilizer", Quantity: 1},
		{ProductID: "p2", Name: "Garden Spade", Quantity: 1},
	}

	out, err := engine.Run(context.Background(), st)
	require.NoError(t, err)

	assert.Empty(t, catalog.searchQueries)
	assert.Zero(t, catalog.recommendCalls)
	require.Len(t, out.Cart, 1)
	assert.Equal(t, "Garden Spade", out.Cart[0].Name)
}

func TestEngineFAQFetchesKnowledge(t *testing.T) {
	classifier := staticReply(classifierReply("faq", 0.85, `{}`))
	catalog := &fakeCatalog{knowledge: "Delivery Policy:\nWe deliver within 3 days."}
	responder := echoSystemPrompt()
	engine := newTestEngine(classifier, catalog, responder)

	st, err := engine.Run(context.Background(), turnState("how fast is delivery?"))
	require.NoError(t, err)

	assert.Equal(t, []string{"how fast is delivery?"}, catalog.knowledgeQueries)
	assert.Contains(t, st.Response, "We deliver within 3 days.")
}

func TestEngineFAQWithoutMatchUsesPlaceholder(t *testing.T) {
	classifier := staticReply(classifierReply("faq", 0.85, `{}`))
	engine := newTestEngine(classifier, &fakeCatalog{}, echoSystemPrompt())

	st, err := engine.Run(context.Background(), turnState("do you ship to the moon?"))
	require.NoError(t, err)

	assert.Contains(t, st.Response, noKnowledgeContext)
}

func TestEngineOrderStatusWithID(t *testing.T) {
	placed := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	classifier := staticReply(classifierReply("order_status", 0.9, `{"orderId":"68a1b2c3d4e5f6a7b8c9d0e1"}`))
	catalog := &fakeCatalog{order: &model.OrderSummary{
		ID: "68a1b2c3d4e5f6a7b8c9d0e1", Status: "paid", Total: 540, ItemCount: 2, PlacedAt: placed,
	}}
	engine := newTestEngine(classifier, catalog, echoSystemPrompt())

	st, err := engine.Run(context.Background(), turnState("where is my order 68a1b2c3d4e5f6a7b8c9d0e1?"))
	require.NoError(t, err)

	assert.Equal(t, []string{"68a1b2c3d4e5f6a7b8c9d0e1"}, catalog.orderLookups)
	assert.Contains(t, st.Response, "Status - paid")
	assert.Contains(t, st.Response, "₹540.00")
	assert.Contains(t, st.Response, "20 Aug 2026")
}

func TestEngineOrderStatusNotFound(t *testing.T) {
	classifier := staticReply(classifierReply("order_status", 0.9, `{"orderId":"deadbeefdeadbeefdeadbeef"}`))
	engine := newTestEngine(classifier, &fakeCatalog{}, echoSystemPrompt())

	st, err := engine.Run(context.Background(), turnState("order status please"))
	require.NoError(t, err)

	assert.Contains(t, st.Response, orderNotFoundContext)
}

func TestEngineOrderStatusListsRecent(t *testing.T) {
	classifier := staticReply(classifierReply("order_status", 0.9, `{}`))
	catalog := &fakeCatalog{recentOrders: []model.OrderSummary{
		{ID: "68a1b2c3d4e5f6a7b8c9d0e1", Status: "delivered", Total: 300, PlacedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "68a1b2c3d4e5f6a7b8c9d0e2", Status: "paid", Total: 120, PlacedAt: time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)},
	}}
	engine := newTestEngine(classifier, catalog, echoSystemPrompt())

	st, err := engine.Run(context.Background(), turnState("show my orders"))
	require.NoError(t, err)

	assert.Contains(t, st.Response, "1. Order b8c9d0e1: delivered")
	assert.Contains(t, st.Response, "2. Order b8c9d0e2: paid")
}

func TestEngineSwallowsCatalogErrors(t *testing.T) {
	classifier := staticReply(classifierReply("search_product", 0.9, `{"productName":"seeds"}`))
	catalog := &fakeCatalog{err: errors.New("mongo down")}
	engine := newTestEngine(classifier, catalog, staticReply("sorry, nothing found"))

	st, err := engine.Run(context.Background(), turnState("seeds?"))
	require.NoError(t, err)

	assert.Empty(t, st.Products)
	assert.Equal(t, "sorry, nothing found", st.Response)
}

func TestEngineClassifierFailureDegradesToGeneral(t *testing.T) {
	classifier := &fakeChatModel{err: errors.New("quota exceeded")}
	catalog := &fakeCatalog{}
	engine := newTestEngine(classifier, catalog, staticReply("hello!"))

	st, err := engine.Run(context.Background(), turnState("hi"))
	require.NoError(t, err)

	assert.Equal(t, model.IntentGeneral, st.Intent)
	assert.Empty(t, catalog.searchQueries)
	assert.Equal(t, "hello!", st.Response)
}

func TestEngineResponderErrorPropagates(t *testing.T) {
	classifier := staticReply(classifierReply("general", 0.7, `{}`))
	engine := newTestEngine(classifier, &fakeCatalog{}, &fakeChatModel{err: errors.New("model unavailable")})

	_, err := engine.Run(context.Background(), turnState("hi"))
	assert.Error(t, err)
}
