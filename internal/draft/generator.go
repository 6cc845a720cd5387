package draft

import (
	"context"
	"log/slog"
	"regexp"

	"leadinbox/internal/llm"
)

// Next actions the operator UI understands.
const (
	ActionSharePrice    = "share_price"
	ActionAskSchedule   = "ask_schedule"
	ActionShareShipping = "share_shipping"
	ActionAskClarify    = "ask_clarify"
)

// Draft is a suggested agent reply plus the recommended next step.
type Draft struct {
	Text       string `json:"draft"`
	NextAction string `json:"next_action"`
}

var (
	rePrice       = regexp.MustCompile(`(?i)(fiyat|ne kadar|kaç tl|ücret)`)
	reAppointment = regexp.MustCompile(`(?i)(randevu|tarih|saat|uygun musunuz)`)
	reShipping    = regexp.MustCompile(`(?i)(kargo|teslimat|kaç günde|adres)`)
)

// Canned picks a canned reply for the message text. Total and deterministic;
// the floor the model tier falls back to.
func Canned(text string) Draft {
	switch {
	case rePrice.MatchString(text):
		return Draft{Text: "Fiyatımızı paylaşmamı ister misiniz?", NextAction: ActionSharePrice}
	case reAppointment.MatchString(text):
		return Draft{Text: "Hangi tarih ve saat sizin için uygun?", NextAction: ActionAskSchedule}
	case reShipping.MatchString(text):
		return Draft{Text: "Teslimat süremiz ve kargo bilgilerini paylaşayım mı?", NextAction: ActionShareShipping}
	default:
		return Draft{Text: "Size nasıl yardımcı olabilirim?", NextAction: ActionAskClarify}
	}
}

const systemPrompt = `You write short polite Turkish replies for sales DM. Return strict JSON: {"draft":"...","next_action":"share_price|ask_schedule|share_shipping|ask_clarify"}.`

// Generator mirrors the classifier's two-tier contract for reply drafting.
type Generator struct {
	model *llm.Client
	log   *slog.Logger
}

func NewGenerator(model *llm.Client, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{model: model, log: log}
}

// Generate never fails: any model problem yields the canned reply.
func (g *Generator) Generate(ctx context.Context, text string) Draft {
	if g.model == nil || !g.model.Enabled() {
		return Canned(text)
	}

	var out Draft
	if err := g.model.CompleteJSON(ctx, systemPrompt, "Last message: "+text, &out); err != nil {
		g.log.Warn("model draft failed, using canned reply", "err", err)
		return Canned(text)
	}
	fallback := Canned(text)
	if out.Text == "" {
		out.Text = fallback.Text
	}
	if !validAction(out.NextAction) {
		out.NextAction = fallback.NextAction
	}
	return out
}

func validAction(s string) bool {
	switch s {
	case ActionSharePrice, ActionAskSchedule, ActionShareShipping, ActionAskClarify:
		return true
	default:
		return false
	}
}
