// Package telegram posts finalized campaigns to a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"creative-automation/internal/campaign"
)

const (
	maxMessageBytes = 4096
	maxCaptionBytes = 1024
)

type Options struct {
	Token  string
	ChatID int64
	// APIEndpoint overrides tgbotapi.APIEndpoint, mainly for tests.
	APIEndpoint string
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Debug       bool
}

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func New(opts Options) (*Notifier, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}
	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Notifier{
		bot:    bot,
		chatID: opts.ChatID,
		logger: logger,
	}, nil
}

func (n *Notifier) Username() string {
	return n.bot.Self.UserName
}

func (n *Notifier) SendText(text string) error {
	for _, p := range splitByBytes(text, maxMessageBytes) {
		if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) SendPhoto(name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{
		Name:  name,
		Bytes: data,
	})
	if caption != "" {
		photo.Caption = truncateByBytes(caption, maxCaptionBytes)
	}
	_, err := n.bot.Send(photo)
	return err
}

// Notify sends the campaign summary followed by the 1:1 creative of every
// product. A missing image is skipped; send errors stop the notification.
func (n *Notifier) Notify(ctx context.Context, brief campaign.Brief, res *campaign.Result) error {
	if err := n.SendText(Summary(brief, res)); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	for _, product := range brief.Products {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := res.Outputs[product]["1:1"]
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			n.logger.Warn("square creative unreadable", "product", product, "path", path, "error", err)
			continue
		}
		if err := n.SendPhoto(filepath.Base(path), data, product); err != nil {
			return fmt.Errorf("send %s creative: %w", product, err)
		}
	}
	return nil
}

// Hook adapts Notify to a campaign finalize hook.
func (n *Notifier) Hook() campaign.FinalizeHook {
	return n.Notify
}

// Summary is the plain-text campaign report sent before the images.
func Summary(brief campaign.Brief, res *campaign.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign %s finalized\n", res.CampaignID)
	fmt.Fprintf(&b, "Country: %s\n", brief.Country)
	fmt.Fprintf(&b, "Audience: %s\n", brief.Audience)
	fmt.Fprintf(&b, "Products: %s\n", strings.Join(brief.Products, ", "))
	fmt.Fprintf(&b, "Images: %d\n", res.Metadata.TotalImages)
	fmt.Fprintf(&b, "Compliance: %s\n", res.Compliance.Status)
	fmt.Fprintf(&b, "LLM: %s (%d tokens, $%.6f)", res.Metadata.LLMUsage.Model, res.Metadata.LLMUsage.TotalTokens, res.Metadata.CostUSD)
	return b.String()
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len() > 0 && buf.Len()+runeBytes > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len()+runeBytes > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
