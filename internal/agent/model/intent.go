package model

import "strings"

// Intent is the classified purpose of a user message. The set is closed:
// anything the classifier emits outside of it is coerced to IntentGeneral
// before it can reach a routing decision.
type Intent string

const (
	IntentSearchProduct  Intent = "search_product"
	IntentAddToCart      Intent = "add_to_cart"
	IntentViewCart       Intent = "view_cart"
	IntentRemoveFromCart Intent = "remove_from_cart"
	IntentCheckout       Intent = "checkout"
	IntentOrderStatus    Intent = "order_status"
	IntentFAQ            Intent = "faq"
	IntentGeneral        Intent = "general"
)

var validIntents = map[Intent]struct{}{
	IntentSearchProduct:  {},
	IntentAddToCart:      {},
	IntentViewCart:       {},
	IntentRemoveFromCart: {},
	IntentCheckout:       {},
	IntentOrderStatus:    {},
	IntentFAQ:            {},
	IntentGeneral:        {},
}

// CoerceIntent normalises a raw classifier tag into the closed intent set.
func CoerceIntent(raw string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validIntents[in]; ok {
		return in
	}
	return IntentGeneral
}

// Entities holds the structured fields the classifier extracts alongside the
// intent. All fields are optional; a zero Quantity means "not mentioned".
type Entities struct {
	ProductName string `json:"productName,omitempty"`
	Category    string `json:"category,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
}

// QuantityOrDefault returns the extracted quantity, defaulting to 1 when the
// classifier did not produce a usable value.
func (e Entities) QuantityOrDefault() int {
	if e.Quantity <= 0 {
		return 1
	}
	return e.Quantity
}

// IntentResult is the classifier output for one user message. Confidence is
// advisory only: it is preserved for API compatibility but no routing
// decision conditions on it.
type IntentResult struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
}

// GeneralFallback is the classifier result used whenever classification
// fails, per the fail-soft contract.
func GeneralFallback() IntentResult {
	return IntentResult{Intent: IntentGeneral, Confidence: 0.5}
}
