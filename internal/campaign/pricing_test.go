package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"creative-automation/internal/llm"
)

func TestRateFor(t *testing.T) {
	assert.Equal(t, Rate{Prompt: 30, Completion: 60}, RateFor("gpt-4o"))
	assert.Equal(t, Rate{Prompt: 30, Completion: 60}, RateFor("gpt-4o-2024-08-06"))
	assert.Equal(t, Rate{Prompt: 3, Completion: 12}, RateFor("gpt-4.1-2025-04-14"))
	assert.Equal(t, Rate{Prompt: 1.25, Completion: 10}, RateFor("GPT-5"))
	assert.Equal(t, Rate{Prompt: 3, Completion: 12}, RateFor("claude-or-whatever"))
	assert.Equal(t, pricing["gpt-4.1"], RateFor("gpt-4o-mini"))
	assert.Equal(t, pricing["gpt-4.1"], RateFor("gpt-4o-mini-2024-07-18"))
	assert.Equal(t, pricing["gpt-4.1"], RateFor("gpt-5-nano"))
	assert.Equal(t, pricing["gpt-4.1"], RateFor("gpt-3.5-turbo-instruct"))
	assert.Equal(t, Rate{Prompt: 0.5, Completion: 1.5}, RateFor("gpt-3.5-turbo-2023-11-06"))
	assert.Equal(t, Rate{Prompt: 3, Completion: 12}, RateFor(""))
}

func TestCost(t *testing.T) {
	assert.InDelta(t, 0.00054, Cost(llm.Usage{PromptTokens: 100, CompletionTokens: 20, Model: "gpt-4.1"}), 1e-12)
	assert.InDelta(t, 0.0042, Cost(llm.Usage{PromptTokens: 100, CompletionTokens: 20, Model: "gpt-4o"}), 1e-12)
	assert.Equal(t, 0.0, Cost(llm.Usage{}))
	assert.InDelta(t, 0.000003, Cost(llm.Usage{PromptTokens: 1, Model: "gpt-4.1"}), 1e-12)
}

func TestUsageLedger(t *testing.T) {
	var l usageLedger

	usage, cost := l.summary()
	assert.Equal(t, "none", usage.Model)
	assert.Zero(t, cost)

	l.add(llm.Usage{})
	l.add(llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, Model: "gpt-4.1"})
	l.add(llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, Model: "gpt-4o"})
	l.add(llm.Usage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60, Model: "gpt-4.1"})

	usage, cost = l.summary()
	assert.Equal(t, "gpt-4.1,gpt-4o", usage.Model)
	assert.Equal(t, 250, usage.PromptTokens)
	assert.Equal(t, 50, usage.CompletionTokens)
	assert.Equal(t, 300, usage.TotalTokens)
	assert.Equal(t, 180, usage.ByModel["gpt-4.1"].TotalTokens)
	assert.InDelta(t, 0.00081+0.0042, cost, 1e-9)
}
