package content

import (
	"context"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// BlockKind names a block-level node.
type BlockKind string

const (
	KindHeading       BlockKind = "heading"
	KindParagraph     BlockKind = "paragraph"
	KindList          BlockKind = "list"
	KindListItem      BlockKind = "list_item"
	KindCodeFence     BlockKind = "code_fence"
	KindCodeBlock     BlockKind = "code_block"
	KindBlockquote    BlockKind = "blockquote"
	KindThematicBreak BlockKind = "thematic_break"
	KindHTML          BlockKind = "html"
	KindTable         BlockKind = "table"
)

// Block is one block-level node of a parsed post.
type Block struct {
	Kind        BlockKind `json:"kind"`
	Level       int       `json:"level,omitempty"`
	ID          string    `json:"id,omitempty"` // heading anchor
	Ordered     bool      `json:"ordered,omitempty"`
	Text        string    `json:"text,omitempty"`
	Language    string    `json:"language,omitempty"`
	Highlighted bool      `json:"highlighted,omitempty"` // a lexer exists for Language
	Children    []Block   `json:"children,omitempty"`
}

// Document is the parsed form of one post. It keeps the goldmark AST so
// it can be rendered again with another palette without re-parsing.
type Document struct {
	Ref    string
	Title  string
	Meta   map[string]any
	Blocks []Block

	source []byte
	root   ast.Node
}

// Source returns the markup the document was parsed from, without front matter.
func (d *Document) Source() []byte { return d.source }

// Headings returns every top-level heading in order.
func (d *Document) Headings() []Block {
	var out []Block
	for _, b := range d.Blocks {
		if b.Kind == KindHeading {
			out = append(out, b)
		}
	}
	return out
}

// Outline returns the section headings (levels 2 and 3) a reader can jump
// to. Posts with fewer than two sections have no outline.
func (d *Document) Outline() []Block {
	var out []Block
	for _, h := range d.Headings() {
		if h.Level >= 2 && h.Level <= 3 && h.ID != "" {
			out = append(out, h)
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// CodeFences returns every fenced code block, depth first.
func (d *Document) CodeFences() []Block {
	var out []Block
	var walk func([]Block)
	walk = func(bs []Block) {
		for _, b := range bs {
			if b.Kind == KindCodeFence {
				out = append(out, b)
			}
			walk(b.Children)
		}
	}
	walk(d.Blocks)
	return out
}

// Parser turns raw post text into Documents.
type Parser struct {
	md goldmark.Markdown
}

// NewParser returns a Parser for GitHub-flavoured markdown.
func NewParser() *Parser {
	return &Parser{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)}
}

// Parse never fails: markup goldmark cannot interpret stays literal text.
func (p *Parser) Parse(ref, raw string) *Document {
	meta, body := splitFrontMatter(raw)
	root := p.md.Parser().Parse(text.NewReader(body))

	doc := &Document{
		Ref:    ref,
		Meta:   meta,
		Blocks: buildBlocks(root, body),
		source: body,
		root:   root,
	}
	if title, ok := meta["title"].(string); ok {
		doc.Title = strings.TrimSpace(title)
	}
	if doc.Title == "" {
		for _, b := range doc.Blocks {
			if b.Kind == KindHeading && b.Level == 1 {
				doc.Title = b.Text
				break
			}
		}
	}
	return doc
}

// Load fetches ref and parses it.
func Load(ctx context.Context, f Fetcher, p *Parser, ref string) (*Document, error) {
	raw, err := f.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return p.Parse(ref, raw), nil
}

// splitFrontMatter separates an optional YAML/TOML/JSON header. Content that
// only looks like front matter is kept whole.
func splitFrontMatter(raw string) (map[string]any, []byte) {
	meta := make(map[string]any)
	rest, err := frontmatter.Parse(strings.NewReader(raw), &meta)
	if err != nil {
		return map[string]any{}, []byte(raw)
	}
	return meta, rest
}

func buildBlocks(parent ast.Node, source []byte) []Block {
	var out []Block
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if b, ok := toBlock(c, source); ok {
			out = append(out, b)
		}
	}
	return out
}

func toBlock(n ast.Node, source []byte) (Block, bool) {
	switch n := n.(type) {
	case *ast.Heading:
		b := Block{Kind: KindHeading, Level: n.Level, Text: inlineText(n, source)}
		if id, ok := n.AttributeString("id"); ok {
			if v, ok := id.([]byte); ok {
				b.ID = string(v)
			}
		}
		return b, true
	case *ast.Paragraph, *ast.TextBlock:
		return Block{Kind: KindParagraph, Text: inlineText(n, source)}, true
	case *ast.List:
		return Block{Kind: KindList, Ordered: n.IsOrdered(), Children: buildBlocks(n, source)}, true
	case *ast.ListItem:
		return Block{Kind: KindListItem, Children: buildBlocks(n, source)}, true
	case *ast.FencedCodeBlock:
		lang := string(n.Language(source))
		return Block{
			Kind:        KindCodeFence,
			Language:    lang,
			Highlighted: lang != "" && lexers.Get(lang) != nil,
			Text:        lineText(n, source),
		}, true
	case *ast.CodeBlock:
		return Block{Kind: KindCodeBlock, Text: lineText(n, source)}, true
	case *ast.Blockquote:
		return Block{Kind: KindBlockquote, Children: buildBlocks(n, source)}, true
	case *ast.ThematicBreak:
		return Block{Kind: KindThematicBreak}, true
	case *ast.HTMLBlock:
		return Block{Kind: KindHTML, Text: lineText(n, source)}, true
	case *extast.Table:
		return Block{Kind: KindTable, Text: inlineText(n, source)}, true
	}
	if n.Type() == ast.TypeBlock {
		return Block{Kind: BlockKind(strings.ToLower(n.Kind().String())), Children: buildBlocks(n, source)}, true
	}
	return Block{}, false
}

// inlineText concatenates the text leaves under n.
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.Label(source))
		case *extast.TableCell:
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// lineText joins the raw lines of a code or HTML block.
func lineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
