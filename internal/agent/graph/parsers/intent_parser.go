package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agrideliver/server/internal/agent/model"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB of completion text
	maxFieldLen   = 512       // per extracted entity value
	maxQuantity   = 10000     // upper bound for a parsed quantity
)

// ExtractJSONObject returns the first balanced {...} block in s, tolerating
// surrounding prose and markdown code fences. The scan is string-aware so
// braces inside quoted values do not unbalance the match.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// rawIntentPayload mirrors the JSON shape the classifier prompt demands.
// Entity values arrive untyped because the model occasionally emits numbers
// as strings, strings as numbers, or the literal "null".
type rawIntentPayload struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// ParseIntentResult converts raw completion text into an IntentResult.
// Intents outside the closed set are coerced to general; a missing or
// unbalanced JSON block is an error the caller degrades on.
func ParseIntentResult(content string) (*model.IntentResult, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}

	block, ok := ExtractJSONObject(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in classifier output")
	}

	var raw rawIntentPayload
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal classifier output: %w", err)
	}

	result := &model.IntentResult{
		Intent:     model.CoerceIntent(raw.Intent),
		Confidence: clampConfidence(raw.Confidence),
		Entities: model.Entities{
			ProductName: entityString(raw.Entities, "productName"),
			Category:    entityString(raw.Entities, "category"),
			Quantity:    entityInt(raw.Entities, "quantity"),
			OrderID:     entityString(raw.Entities, "orderId"),
		},
	}
	return result, nil
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// entityString pulls a trimmed string field out of the entity bag, treating
// JSON null and the literal strings "null"/"none" as absent.
func entityString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if len(s) > maxFieldLen {
		s = s[:maxFieldLen]
	}
	switch strings.ToLower(s) {
	case "", "null", "none":
		return ""
	}
	return s
}

// entityInt coerces a quantity field that may arrive as a JSON number or a
// digit string. Anything unusable yields 0 (meaning "not mentioned").
func entityInt(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}
	switch vv := v.(type) {
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) || vv < 0 {
			return 0
		}
		// int(vv) is undefined for values outside the int range.
		if vv > maxQuantity {
			return maxQuantity
		}
		return int(vv)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(vv))
		if err != nil || n < 0 {
			return 0
		}
		if n > maxQuantity {
			return maxQuantity
		}
		return n
	default:
		return 0
	}
}
