package content

import (
	"bytes"
	"fmt"
	"html"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"

	"github.com/aaronparisi/technoblog/internal/theme"
)

// Palette names the chroma style used for each theme.
type Palette struct {
	Dark  string
	Light string
}

// DefaultPalette returns the built-in styles.
func DefaultPalette() Palette {
	return Palette{Dark: "monokai", Light: "github"}
}

// Renderer turns Documents into HTML. Fenced code with a known language is
// highlighted with the palette of the requested theme; everything else is
// plain monospaced text.
type Renderer struct {
	dark    goldmark.Markdown
	light   goldmark.Markdown
	palette Palette
	logger  *zap.Logger
}

// NewRenderer builds one pipeline per theme. Unknown style names fall back
// to the defaults.
func NewRenderer(p Palette, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultPalette()
	p.Dark = knownStyle(p.Dark, def.Dark, logger)
	p.Light = knownStyle(p.Light, def.Light, logger)

	return &Renderer{
		dark:    newPipeline(p.Dark),
		light:   newPipeline(p.Light),
		palette: p,
		logger:  logger,
	}
}

func knownStyle(name, fallback string, logger *zap.Logger) string {
	if name == "" {
		return fallback
	}
	if _, ok := styles.Registry[name]; !ok {
		logger.Warn("unknown highlight style, using default", zap.String("style", name), zap.String("default", fallback))
		return fallback
	}
	return name
}

func newPipeline(style string) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.TabWidth(4),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// Palette returns the style names in use.
func (r *Renderer) Palette() Palette { return r.palette }

// Style returns the chroma style used for st.
func (r *Renderer) Style(st theme.State) string {
	if st == theme.Dark {
		return r.palette.Dark
	}
	return r.palette.Light
}

// Render renders doc with the palette for st. It does not re-parse. A
// failing renderer degrades to the escaped source.
func (r *Renderer) Render(doc *Document, st theme.State) (out template.HTML) {
	if doc == nil || doc.root == nil {
		return ""
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("render panicked", zap.String("ref", doc.Ref), zap.Any("panic", rec))
			out = Literal(doc.source)
		}
	}()

	md := r.light
	if st == theme.Dark {
		md = r.dark
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, doc.source, doc.root); err != nil {
		r.logger.Warn("render failed, showing literal text", zap.String("ref", doc.Ref), zap.Error(err))
		return Literal(doc.source)
	}
	return template.HTML(buf.String())
}

// Literal shows source as escaped preformatted text.
func Literal(source []byte) template.HTML {
	return template.HTML(fmt.Sprintf(`<pre class="raw">%s</pre>`, html.EscapeString(string(source))))
}
