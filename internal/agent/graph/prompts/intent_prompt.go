package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/intent_prompt.txt
var intentSystemPrompt string

// RenderIntentSystem renders the intent-classifier system prompt via the
// Eino prompt component. The template enumerates the closed intent set and
// the entity fields and demands a JSON-only reply.
func RenderIntentSystem(ctx context.Context) (string, error) {
	// Wrap via a messages placeholder so the static template passes through
	// untouched (the JSON example contains braces FString would mangle).
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(intentSystemPrompt)},
	})
	if err != nil {
		return "", fmt.Errorf("intent prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("intent prompt render: empty result")
	}
	return msgs[0].Content, nil
}
