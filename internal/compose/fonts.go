package compose

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"unicode"

	"github.com/patrickmn/go-cache"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"creative-automation/internal/locale"
)

// BuiltinBold names the embedded Go Bold face. It covers Latin, Greek and
// Cyrillic.
const BuiltinBold = "builtin:gobold"

const basicFontName = "builtin:basic7x13"

// DefaultFontTable lists candidate font files per script class, most
// preferred first. File names are resolved against the font book's FS.
var DefaultFontTable = map[locale.ScriptClass][]string{
	locale.ScriptCJK: {
		"NotoSansCJK-Bold.ttc",
		"NotoSansCJK-Regular.ttc",
		"NotoSansCJKsc-Bold.otf",
		"TakaoPGothic.ttf",
		"NotoSerifCJK-Bold.ttc",
		"DejaVuSans-Bold.ttf",
	},
	locale.ScriptArabic: {
		"NotoNaskhArabic-Bold.ttf",
		"NotoNaskhArabic-Regular.ttf",
		"NotoSansArabic-Bold.ttf",
		"NotoSansHebrew-Bold.ttf",
		"DejaVuSans-Bold.ttf",
		"NotoSans-Bold.ttf",
	},
	locale.ScriptCyrillic: {
		"DejaVuSans-Bold.ttf",
		"LiberationSans-Bold.ttf",
		"NotoSans-Bold.ttf",
		"NotoSansGeorgian-Bold.ttf",
		"NotoSansArmenian-Bold.ttf",
		BuiltinBold,
	},
	locale.ScriptGeneral: {
		"LiberationSans-Bold.ttf",
		"DejaVuSans-Bold.ttf",
		"NotoSans-Bold.ttf",
		BuiltinBold,
	},
}

type FontBookOptions struct {
	// FS holds bundled font files. Nil means only built-in faces are used.
	FS     fs.FS
	Table  map[locale.ScriptClass][]string
	Size   float64
	Logger *slog.Logger
}

// FontBook picks a face for a script class by walking its candidate list.
// Parsed fonts are cached; faces are created per call since they are not
// safe for concurrent use.
type FontBook struct {
	fsys   fs.FS
	table  map[locale.ScriptClass][]string
	size   float64
	parsed *cache.Cache
	logger *slog.Logger
}

func NewFontBook(opts FontBookOptions) *FontBook {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	table := opts.Table
	if table == nil {
		table = DefaultFontTable
	}

	size := opts.Size
	if size <= 0 {
		size = 48
	}

	return &FontBook{
		fsys:   opts.FS,
		table:  table,
		size:   size,
		parsed: cache.New(cache.NoExpiration, 0),
		logger: logger,
	}
}

// Face returns a ready face and the name of the resource it came from. A
// candidate is skipped when it lacks a glyph for any visible rune of text.
// It never fails: when no candidate fits, the basic bitmap face is returned.
func (b *FontBook) Face(script locale.ScriptClass, text string) (font.Face, string) {
	for _, name := range b.candidates(script) {
		f, err := b.load(name)
		if err != nil {
			b.logger.Debug("font candidate unavailable", "font", name, "script", script, "error", err)
			continue
		}
		if r, ok := covers(f, text); !ok {
			b.logger.Debug("font candidate lacks glyph", "font", name, "script", script, "rune", string(r))
			continue
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    b.size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			b.logger.Warn("font face creation failed", "font", name, "error", err)
			continue
		}
		return face, name
	}

	b.logger.Warn("no font candidate loaded, using basic face", "script", script)
	return basicfont.Face7x13, basicFontName
}

// Bundled reports whether a font file from the book's FS loads for script.
// Built-in faces do not count.
func (b *FontBook) Bundled(script locale.ScriptClass) bool {
	for _, name := range b.candidates(script) {
		if name == BuiltinBold {
			continue
		}
		if _, err := b.load(name); err == nil {
			return true
		}
	}
	return false
}

func (b *FontBook) candidates(script locale.ScriptClass) []string {
	if c, ok := b.table[script]; ok {
		return c
	}
	return b.table[locale.ScriptGeneral]
}

func covers(f *opentype.Font, text string) (rune, bool) {
	var buf sfnt.Buffer
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return r, false
		}
	}
	return 0, true
}

func (b *FontBook) load(name string) (*opentype.Font, error) {
	if v, ok := b.parsed.Get(name); ok {
		return v.(*opentype.Font), nil
	}

	f, err := b.parse(name)
	if err != nil {
		return nil, err
	}
	b.parsed.SetDefault(name, f)
	return f, nil
}

func (b *FontBook) parse(name string) (*opentype.Font, error) {
	if name == BuiltinBold {
		return opentype.Parse(gobold.TTF)
	}
	if b.fsys == nil {
		return nil, fmt.Errorf("no font directory configured")
	}

	data, err := fs.ReadFile(b.fsys, name)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".ttc", ".otc":
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return coll.Font(0)
	default:
		return opentype.Parse(data)
	}
}
