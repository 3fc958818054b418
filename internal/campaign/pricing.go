package campaign

import (
	"math"
	"regexp"
	"strings"

	"creative-automation/internal/llm"
)

// Rate is a USD price per million tokens.
type Rate struct {
	Prompt     float64 `json:"prompt"`
	Completion float64 `json:"completion"`
}

const defaultPricingTier = "gpt-4.1"

var pricing = map[string]Rate{
	"gpt-5":         {Prompt: 1.25, Completion: 10.00},
	"gpt-4.1":       {Prompt: 3.00, Completion: 12.00},
	"gpt-4o":        {Prompt: 30.00, Completion: 60.00},
	"gpt-3.5-turbo": {Prompt: 0.50, Completion: 1.50},
}

// snapshotSuffix matches the date OpenAI appends to pinned model ids, as in
// "gpt-4o-2024-08-06".
var snapshotSuffix = regexp.MustCompile(`-\d{4}-\d{2}-\d{2}$`)

// RateFor returns the rate for model or its dated snapshot. Every other id,
// including variants such as "gpt-4o-mini", gets the default tier's rate.
func RateFor(model string) Rate {
	model = strings.ToLower(strings.TrimSpace(model))
	if r, ok := pricing[model]; ok {
		return r
	}
	if r, ok := pricing[snapshotSuffix.ReplaceAllString(model, "")]; ok {
		return r
	}
	return pricing[defaultPricingTier]
}

func Cost(u llm.Usage) float64 {
	r := RateFor(u.Model)
	total := float64(u.PromptTokens)/1_000_000*r.Prompt + float64(u.CompletionTokens)/1_000_000*r.Completion
	return math.Round(total*1e6) / 1e6
}

// LLMUsage is the campaign's language-model consumption.
type LLMUsage struct {
	PromptTokens     int                  `json:"prompt_tokens"`
	CompletionTokens int                  `json:"completion_tokens"`
	TotalTokens      int                  `json:"total_tokens"`
	Model            string               `json:"model"`
	ByModel          map[string]llm.Usage `json:"by_model,omitempty"`
}

type usageLedger struct {
	byModel map[string]llm.Usage
	order   []string
}

func (l *usageLedger) add(u llm.Usage) {
	if u.TotalTokens == 0 && u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return
	}
	if l.byModel == nil {
		l.byModel = make(map[string]llm.Usage)
	}
	prev, ok := l.byModel[u.Model]
	if !ok {
		l.order = append(l.order, u.Model)
		prev = llm.Usage{Model: u.Model}
	}
	l.byModel[u.Model] = prev.Add(u)
}

// summary totals usage across models and prices each model at its own
// rate.
func (l *usageLedger) summary() (LLMUsage, float64) {
	if len(l.order) == 0 {
		return LLMUsage{Model: "none"}, 0
	}

	out := LLMUsage{Model: strings.Join(l.order, ","), ByModel: l.byModel}
	var cost float64
	for _, model := range l.order {
		u := l.byModel[model]
		out.PromptTokens += u.PromptTokens
		out.CompletionTokens += u.CompletionTokens
		out.TotalTokens += u.TotalTokens
		cost += Cost(u)
	}
	return out, math.Round(cost*1e6) / 1e6
}
