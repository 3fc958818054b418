// Package localize adapts prompts and marketing copy to a target country and
// audience.
package localize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"creative-automation/internal/audience"
	"creative-automation/internal/llm"
	"creative-automation/internal/locale"
)

const (
	maxTokens   = 150
	temperature = 0.7
)

type Options struct {
	Completer     llm.Completer
	Model         string
	FallbackModel string
	Audiences     *audience.Catalog
	Logger        *slog.Logger
}

type Translator struct {
	completer     llm.Completer
	model         string
	fallbackModel string
	audiences     *audience.Catalog
	logger        *slog.Logger
}

// Translation is the outcome of one translate call. Usage is zero when no
// model call succeeded.
type Translation struct {
	Text            string    `json:"text"`
	BackTranslation string    `json:"back_translation,omitempty"`
	Language        string    `json:"language"`
	Translated      bool      `json:"translated"`
	Usage           llm.Usage `json:"usage"`
}

func NewTranslator(opts Options) *Translator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	audiences := opts.Audiences
	if audiences == nil {
		audiences = audience.Default()
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4.1"
	}

	return &Translator{
		completer:     opts.Completer,
		model:         model,
		fallbackModel: strings.TrimSpace(opts.FallbackModel),
		audiences:     audiences,
		logger:        logger,
	}
}

// TranslateMessage never fails: English targets and every provider error
// return the original message with zero usage.
func (t *Translator) TranslateMessage(ctx context.Context, message string, loc locale.Context, audienceID string) Translation {
	original := Translation{Text: message, Language: loc.Language}
	if loc.IsEnglish() || strings.TrimSpace(message) == "" {
		return original
	}
	if t.completer == nil {
		t.logger.Warn("translation skipped: no completer configured", "country", loc.Code)
		return original
	}

	req := llm.Request{
		Model:       t.model,
		System:      t.systemPrompt(loc, audienceID),
		User:        message,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	out, err := t.completer.Complete(ctx, req)
	if err != nil && t.fallbackModel != "" && t.fallbackModel != t.model {
		t.logger.Warn("translation model failed, retrying with fallback",
			"model", t.model, "fallback_model", t.fallbackModel, "error", err)
		req.Model = t.fallbackModel
		out, err = t.completer.Complete(ctx, req)
	}
	if err != nil {
		t.logger.Warn("translation failed, using original message", "country", loc.Code, "error", err)
		return original
	}

	text, back := splitTranslation(out.Text)
	if text == "" {
		t.logger.Warn("translation returned empty text, using original message", "country", loc.Code)
		return original
	}

	t.logger.Info("message translated",
		"country", loc.Code,
		"language", loc.Language,
		"audience", audienceID,
		"model", out.Usage.Model,
		"total_tokens", out.Usage.TotalTokens,
	)

	return Translation{
		Text:            text,
		BackTranslation: back,
		Language:        loc.Language,
		Translated:      true,
		Usage:           out.Usage,
	}
}

func (t *Translator) audienceContext(audienceID string) string {
	if strings.TrimSpace(audienceID) == "" {
		return ""
	}
	if d, ok := t.audiences.Lookup(audienceID); ok {
		return d.Context()
	}
	return "Target audience: " + audienceID + "."
}

func (t *Translator) systemPrompt(loc locale.Context, audienceID string) string {
	lang := loc.Language
	return fmt.Sprintf(`You are an integrated marketing AI professional working on a global work apparel brand.
Your role is to receive an English seed copy and generate a new, creative, localized and culturally resonant marketing message in %[1]s for the target audience.

TASK:
- Generate a new, compelling creative marketing message for a %[1]s-speaking audience.
- Consider cultural nuances and social preferences of audiences in %[2]s.
- The target audience is: %[3]s

OUTPUT RULES:
- Write the final message directly, with no explanations, prefixes, or commentary.
- First line: the localized message in %[1]s.
- Second line: the English translation of that localized message.

The copy must be production-ready, in %[1]s and suitable for an advertising campaign in %[2]s.`,
		lang, loc.Name, t.audienceContext(audienceID))
}

// splitTranslation separates the display line from the optional English
// back-translation on the next non-empty line.
func splitTranslation(raw string) (text, back string) {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"“”`)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", ""
	}
	if len(lines) > 1 {
		back = lines[1]
	}
	return lines[0], back
}
