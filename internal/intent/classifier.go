package intent

import (
	"context"
	"log/slog"

	"leadinbox/internal/llm"
)

const systemPrompt = `You are an intent classifier. Return strict JSON: {"intent":"price_inquiry|appointment|shipping|other","confidence":0.0,"entities":{},"urgency":"low|normal|high","suggested_stage":"new|qualified|proposal|won|lost"}.`

// Classifier is the two-tier intent pipeline: model first when an endpoint is
// configured, heuristic always as the floor. Classify never fails; the
// follow-up SLA machinery downstream depends on every classify job finishing.
type Classifier struct {
	model *llm.Client
	log   *slog.Logger
}

func NewClassifier(model *llm.Client, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{model: model, log: log}
}

func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if c.model == nil || !c.model.Enabled() {
		return Heuristic(text)
	}

	var out Classification
	if err := c.model.CompleteJSON(ctx, systemPrompt, "Text: "+text, &out); err != nil {
		c.log.Warn("model classify failed, using heuristic", "err", err)
		return Heuristic(text)
	}
	if !validIntent(out.Intent) || out.Confidence < 0 || out.Confidence > 1 {
		c.log.Warn("model classify returned invalid result, using heuristic",
			"intent", out.Intent, "confidence", out.Confidence)
		return Heuristic(text)
	}
	if out.Urgency == "" {
		out.Urgency = "normal"
	}
	if out.SuggestedStage == "" {
		out.SuggestedStage = "qualified"
	}
	return out
}
