package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrideliver/server/internal/agent/model"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"intent":"faq"}`,
			want:  `{"intent":"faq"}`,
			ok:    true,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"intent\":\"faq\"}\n```",
			want:  `{"intent":"faq"}`,
			ok:    true,
		},
		{
			name:  "surrounding prose",
			input: `Sure! Here is the classification: {"intent":"view_cart"} hope that helps`,
			want:  `{"intent":"view_cart"}`,
			ok:    true,
		},
		{
			name:  "nested entities object",
			input: `{"intent":"add_to_cart","entities":{"productName":"seeds"}}`,
			want:  `{"intent":"add_to_cart","entities":{"productName":"seeds"}}`,
			ok:    true,
		},
		{
			name:  "brace inside string value",
			input: `{"intent":"general","entities":{"productName":"odd } name"}}`,
			want:  `{"intent":"general","entities":{"productName":"odd } name"}}`,
			ok:    true,
		},
		{
			name:  "no object",
			input: "I could not classify that.",
			ok:    false,
		},
		{
			name:  "unbalanced",
			input: `{"intent":"faq"`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseIntentResult(t *testing.T) {
	content := "```json\n" + `{
		"intent": "add_to_cart",
		"confidence": 0.92,
		"entities": {"productName": "wheat seeds", "quantity": 2, "category": null, "orderId": null}
	}` + "\n```"

	result, err := ParseIntentResult(content)
	require.NoError(t, err)
	assert.Equal(t, model.IntentAddToCart, result.Intent)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, "wheat seeds", result.Entities.ProductName)
	assert.Equal(t, 2, result.Entities.Quantity)
	assert.Empty(t, result.Entities.Category)
	assert.Empty(t, result.Entities.OrderID)
}

func TestParseIntentResultQuantityAsString(t *testing.T) {
	result, err := ParseIntentResult(`{"intent":"add_to_cart","confidence":0.8,"entities":{"quantity":"3"}}`)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Entities.Quantity)
}

func TestParseIntentResultQuantityClamped(t *testing.T) {
	result, err := ParseIntentResult(`{"intent":"add_to_cart","confidence":0.8,"entities":{"quantity":1e30}}`)
	require.NoError(t, err)
	assert.Equal(t, maxQuantity, result.Entities.Quantity)

	result, err = ParseIntentResult(`{"intent":"add_to_cart","confidence":0.8,"entities":{"quantity":"999999"}}`)
	require.NoError(t, err)
	assert.Equal(t, maxQuantity, result.Entities.Quantity)
}

func TestParseIntentResultUnknownIntentCoerced(t *testing.T) {
	result, err := ParseIntentResult(`{"intent":"buy_tractor_now","confidence":0.99,"entities":{}}`)
	require.NoError(t, err)
	assert.Equal(t, model.IntentGeneral, result.Intent)
}

func TestParseIntentResultConfidenceClamped(t *testing.T) {
	result, err := ParseIntentResult(`{"intent":"faq","confidence":3.5,"entities":{}}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)

	result, err = ParseIntentResult(`{"intent":"faq","confidence":-1,"entities":{}}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestParseIntentResultNullishEntityStrings(t *testing.T) {
	result, err := ParseIntentResult(`{"intent":"faq","confidence":0.7,"entities":{"productName":"null","category":"None","orderId":"  "}}`)
	require.NoError(t, err)
	assert.Empty(t, result.Entities.ProductName)
	assert.Empty(t, result.Entities.Category)
	assert.Empty(t, result.Entities.OrderID)
}

func TestParseIntentResultFailures(t *testing.T) {
	_, err := ParseIntentResult("no json here")
	assert.Error(t, err)

	_, err = ParseIntentResult(`{"intent": add_to_cart}`)
	assert.Error(t, err)
}

func TestParseIntentResultOversizedContent(t *testing.T) {
	// A valid object buried past the truncation point must not be found.
	content := strings.Repeat("x", maxContentLen) + `{"intent":"faq","confidence":0.9,"entities":{}}`
	_, err := ParseIntentResult(content)
	assert.Error(t, err)
}
