package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"creative-automation/internal/locale"
)

const (
	brandMargin  = 20
	textPadding  = 30
	outlineRange = 2
	ellipsis     = "..."
)

type Position string

const (
	TopLeft     Position = "top_left"
	TopRight    Position = "top_right"
	BottomLeft  Position = "bottom_left"
	BottomRight Position = "bottom_right"
)

func ParsePosition(s string) Position {
	switch p := Position(strings.ToLower(strings.TrimSpace(s))); p {
	case TopRight, BottomLeft, BottomRight:
		return p
	default:
		return TopLeft
	}
}

var (
	outlineColor = color.NRGBA{A: 255}
	fillColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

type Options struct {
	Fonts *FontBook
	// Brand is the mark composited on every variant; nil skips it.
	Brand     image.Image
	BrandSize int
	Position  Position
	Logger    *slog.Logger
}

type Compositor struct {
	fonts    *FontBook
	brand    *image.NRGBA
	position Position
	logger   *slog.Logger
}

// OverlayInfo describes what was drawn on one variant.
type OverlayInfo struct {
	Font         string `json:"font"`
	Script       string `json:"script"`
	Direction    string `json:"text_direction"`
	Lines        int    `json:"lines"`
	Truncated    bool   `json:"truncated,omitempty"`
	BrandApplied bool   `json:"brand_applied"`
}

func New(opts Options) *Compositor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fonts := opts.Fonts
	if fonts == nil {
		fonts = NewFontBook(FontBookOptions{Logger: logger})
	}

	size := opts.BrandSize
	if size <= 0 {
		size = 350
	}

	var brand *image.NRGBA
	if opts.Brand != nil {
		brand = imaging.Resize(opts.Brand, size, size, imaging.Lanczos)
	}

	position := opts.Position
	if position == "" {
		position = TopLeft
	}

	return &Compositor{
		fonts:    fonts,
		brand:    brand,
		position: position,
		logger:   logger,
	}
}

// LoadBrand decodes the brand mark at path. A missing file is not an error;
// it returns nil so variants are produced without a mark.
func LoadBrand(path string) (image.Image, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open brand image: %w", err)
	}
	return img, nil
}

// ApplyFile overlays the brand and message on the PNG at path and writes it
// back in place.
func (c *Compositor) ApplyFile(path, message string, loc locale.Context) (OverlayInfo, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return OverlayInfo{}, fmt.Errorf("open variant: %w", err)
	}

	out, info := c.Overlay(src, message, loc)
	if err := imaging.Save(out, path); err != nil {
		return OverlayInfo{}, fmt.Errorf("save variant: %w", err)
	}
	return info, nil
}

func (c *Compositor) Overlay(src image.Image, message string, loc locale.Context) (*image.NRGBA, OverlayInfo) {
	dst := imaging.Clone(src)
	info := OverlayInfo{Script: string(loc.Script), Direction: loc.Direction()}

	if c.brand != nil {
		dst = imaging.Overlay(dst, c.brand, c.brandOrigin(dst.Bounds()), 1.0)
		info.BrandApplied = true
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return dst, info
	}

	face, name := c.fonts.Face(loc.Script, message)
	defer face.Close()
	info.Font = name

	lines, truncated := layoutText(face, message, dst.Bounds().Dx()-2*textPadding, dst.Bounds().Dy()-2*textPadding)
	info.Lines = len(lines)
	info.Truncated = truncated
	drawOutlined(dst, face, lines)

	c.logger.Debug("overlay rendered",
		"font", name,
		"script", loc.Script,
		"direction", info.Direction,
		"lines", len(lines),
		"truncated", truncated,
	)
	return dst, info
}

func (c *Compositor) brandOrigin(bounds image.Rectangle) image.Point {
	bw, bh := c.brand.Bounds().Dx(), c.brand.Bounds().Dy()
	w, h := bounds.Dx(), bounds.Dy()

	switch c.position {
	case TopRight:
		return image.Pt(w-bw-brandMargin, brandMargin)
	case BottomLeft:
		return image.Pt(brandMargin, h-bh-brandMargin)
	case BottomRight:
		return image.Pt(w-bw-brandMargin, h-bh-brandMargin)
	default:
		return image.Pt(brandMargin, brandMargin)
	}
}

// drawOutlined places the text block at the bottom-right corner, inside the
// padding, stamping an outline ring before the fill pass.
func drawOutlined(dst *image.NRGBA, face font.Face, lines []string) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	blockW := 0
	for _, line := range lines {
		blockW = max(blockW, font.MeasureString(face, line).Ceil())
	}
	blockH := lineHeight * len(lines)

	x := w - blockW - textPadding
	if blockW+2*textPadding > w {
		x = textPadding
	}
	y := max(h-blockH-textPadding, textPadding)

	drawer := &font.Drawer{Dst: dst, Face: face}
	stamp := func(dx, dy int, c color.Color) {
		drawer.Src = image.NewUniform(c)
		for i, line := range lines {
			drawer.Dot = fixed.P(x+dx, y+ascent+i*lineHeight+dy)
			drawer.DrawString(line)
		}
	}

	for dx := -outlineRange; dx <= outlineRange; dx++ {
		for dy := -outlineRange; dy <= outlineRange; dy++ {
			if dx != 0 || dy != 0 {
				stamp(dx, dy, outlineColor)
			}
		}
	}
	stamp(0, 0, fillColor)
}

// layoutText wraps text to maxWidth and keeps as many lines as fit in
// maxHeight. The last kept line ends with an ellipsis when text was cut.
func layoutText(face font.Face, text string, maxWidth, maxHeight int) ([]string, bool) {
	lineHeight := face.Metrics().Height.Ceil()
	maxLines := 1
	if lineHeight > 0 && maxHeight > lineHeight {
		maxLines = maxHeight / lineHeight
	}

	lines := wrapText(face, text, maxWidth)
	if len(lines) <= maxLines {
		return lines, false
	}

	lines = lines[:maxLines]
	last := lines[maxLines-1]
	for last != "" && measure(face, last+ellipsis) > maxWidth {
		_, size := utf8.DecodeLastRuneInString(last)
		last = last[:len(last)-size]
	}
	lines[maxLines-1] = strings.TrimSpace(last) + ellipsis
	return lines, true
}

func wrapText(face font.Face, text string, maxWidth int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if measure(face, candidate) <= maxWidth {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			if measure(face, word) <= maxWidth {
				current = word
				continue
			}

			pieces := breakRunes(face, word, maxWidth)
			lines = append(lines, pieces[:len(pieces)-1]...)
			current = pieces[len(pieces)-1]
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// breakRunes splits a word with no break opportunities, as in CJK text,
// into pieces no wider than maxWidth. It always returns at least one piece.
func breakRunes(face font.Face, word string, maxWidth int) []string {
	var pieces []string
	current := ""
	for _, r := range word {
		candidate := current + string(r)
		if current != "" && measure(face, candidate) > maxWidth {
			pieces = append(pieces, current)
			candidate = string(r)
		}
		current = candidate
	}
	return append(pieces, current)
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
