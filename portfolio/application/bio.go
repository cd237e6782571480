package application

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const maxSnippetLength = 160

// BioRenderResult contains the results of rendering a model bio
type BioRenderResult struct {
	HTML    string
	Snippet string
}

// BioRenderer converts a markdown bio into HTML and a plain snippet.
type BioRenderer interface {
	Render(markdown []byte) (*BioRenderResult, error)
}

// outboundLinkTransformer marks absolute links so they open in a new tab
// without passing the referrer along.
type outboundLinkTransformer struct{}

func (t *outboundLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var dest string
		switch link := n.(type) {
		case *ast.Link:
			dest = string(link.Destination)
		case *ast.AutoLink:
			if link.AutoLinkType != ast.AutoLinkURL {
				return ast.WalkContinue, nil
			}
			dest = string(link.URL(reader.Source()))
		default:
			return ast.WalkContinue, nil
		}

		if !isRelativeLink(dest) {
			n.SetAttributeString("rel", []byte("nofollow noopener noreferrer"))
			n.SetAttributeString("target", []byte("_blank"))
		}

		return ast.WalkContinue, nil
	})
}

// isRelativeLink reports whether dest stays on this site: no scheme and no host.
func isRelativeLink(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

type goldmarkBioRenderer struct {
	renderer goldmark.Markdown
}

// NewBioRenderer returns a renderer that escapes raw HTML in bios.
func NewBioRenderer() BioRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(&outboundLinkTransformer{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &goldmarkBioRenderer{
		renderer: renderer,
	}
}

func (r *goldmarkBioRenderer) Render(markdown []byte) (*BioRenderResult, error) {
	var buf bytes.Buffer
	if err := r.renderer.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert bio to HTML: %w", err)
	}

	return &BioRenderResult{
		HTML:    buf.String(),
		Snippet: extractSnippet(markdown),
	}, nil
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineText
	lineSkip  // headings and images
	lineBlock // fences, rules, list items, tables
)

var blockPrefixes = []string{"```", "~~~", "---", "***", "- ", "* ", "+ ", "|"}

func classifyLine(line string) lineKind {
	switch {
	case line == "":
		return lineBlank
	case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "!["):
		return lineSkip
	}
	for _, prefix := range blockPrefixes {
		if strings.HasPrefix(line, prefix) {
			return lineBlock
		}
	}
	return lineText
}

// extractSnippet returns the first prose paragraph of a bio, flattened to one
// line and cut at a word boundary.
func extractSnippet(markdown []byte) string {
	var words []string

	for _, raw := range strings.Split(string(markdown), "\n") {
		line := strings.TrimSpace(raw)
		for strings.HasPrefix(line, ">") {
			line = strings.TrimSpace(strings.TrimPrefix(line, ">"))
		}

		kind := classifyLine(line)
		if kind == lineText {
			words = append(words, line)
			continue
		}
		if len(words) > 0 {
			break
		}
	}

	return truncateRunes(strings.Join(words, " "), maxSnippetLength)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := string(runes[:limit])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
