package graph

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/agrideliver/server/internal/agent/graph/parsers"
	"github.com/agrideliver/server/internal/agent/graph/prompts"
	"github.com/agrideliver/server/internal/agent/model"
	logx "github.com/agrideliver/server/pkg/logger"
)

// Classifier turns free-text user input into a typed intent plus extracted
// entities using a single constrained-output completion call.
type Classifier struct {
	cm        model.ChatModel
	modelName string
}

func NewClassifier(cm model.ChatModel, modelName string) *Classifier {
	return &Classifier{cm: cm, modelName: modelName}
}

// Classify never fails: prompt render errors, completion errors, and
// unparseable output all degrade to the general-intent fallback so a broken
// classifier can never abort a turn.
func (c *Classifier) Classify(ctx context.Context, userText string) model.IntentResult {
	systemPrompt, err := prompts.RenderIntentSystem(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render intent prompt; falling back to general intent")
		return model.GeneralFallback()
	}

	out, err := c.cm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userText),
	})
	if err != nil || out == nil {
		logx.Error().Err(err).Msg("Intent classification call failed; falling back to general intent")
		return model.GeneralFallback()
	}
	logUsage("", "classify", c.modelName, out)

	result, err := parsers.ParseIntentResult(out.Content)
	if err != nil || result == nil {
		logx.Warn().Err(err).Msg("Unparseable classifier output; falling back to general intent")
		return model.GeneralFallback()
	}

	logx.Debug().
		Str("intent", string(result.Intent)).
		Float64("confidence", result.Confidence).
		Msg("Intent classified")
	return *result
}
