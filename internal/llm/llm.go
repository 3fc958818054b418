// Package llm holds the request and usage types shared by chat-completion
// backends.
package llm

import "context"

type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		Model:            u.Model,
	}
}

type Completion struct {
	Text  string
	Usage Usage
}

type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}
