package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/agrideliver/server/internal/agent/model"
)

//go:embed template/response_prompt.txt
var responseSystemPrompt string

// RenderResponseSystem renders the dynamic response system prompt from the
// accumulated turn state: intent, candidate products with prices, the cart
// summary, and any retrieved knowledge or order context.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, st model.GraphState) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(responseSystemPrompt),
	)
	vars := map[string]any{
		"BusinessType": config.BusinessType,
		"BusinessName": config.BusinessName,
		"Intent":       string(st.Intent),
		"ProductList":  FormatProductList(st.Products),
		"CartSummary":  FormatCartSummary(st.Cart),
		"Context":      strings.TrimSpace(st.Context),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// FormatProductList renders candidates as "Name (₹price)" entries, or "None"
// when the fetch produced nothing.
func FormatProductList(products []model.ProductCandidate) string {
	if len(products) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(products))
	for _, p := range products {
		parts = append(parts, fmt.Sprintf("%s (₹%.2f)", p.Name, p.Price))
	}
	return strings.Join(parts, ", ")
}

// FormatCartSummary renders cart lines as "name xqty" entries, or "Empty".
func FormatCartSummary(cart []model.CartLine) string {
	if len(cart) == 0 {
		return "Empty"
	}
	parts := make([]string, 0, len(cart))
	for _, line := range cart {
		parts = append(parts, fmt.Sprintf("%s x%d", line.Name, line.Quantity))
	}
	return strings.Join(parts, ", ")
}
