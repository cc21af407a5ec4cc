package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is what the crawler needs from a fetched page.
type Document struct {
	// Title is the raw text of the first <title> element.
	Title string

	// Content is the raw text of the content region.
	Content string

	// HasContent reports whether a non-empty content region was found.
	HasContent bool

	// Hrefs are the href values of all <a href> elements in document order.
	Hrefs []string
}

// Parser extracts a Document from HTML.
type Parser interface {
	Parse(rawHTML string) (*Document, error)
}

// HTMLParser is the goquery based Parser.
//
// The content region is the first <main>, else the first <article>, else
// <body>. A region without any child node counts as missing.
type HTMLParser struct{}

// NewHTMLParser returns an HTMLParser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// contentSelectors lists the content region candidates in priority order.
var contentSelectors = []string{"main", "article", "body"}

// skippedElements never contribute text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

// inlineElements are joined to their neighbours without a separator, so
// "<b>Go</b>pher" stays one word. Every other element is surrounded by
// spaces so that "<p>a</p><p>b</p>" does not become "ab".
var inlineElements = map[atom.Atom]bool{
	atom.A:      true,
	atom.Abbr:   true,
	atom.B:      true,
	atom.Cite:   true,
	atom.Code:   true,
	atom.Em:     true,
	atom.I:      true,
	atom.Kbd:    true,
	atom.Mark:   true,
	atom.Q:      true,
	atom.S:      true,
	atom.Small:  true,
	atom.Span:   true,
	atom.Strong: true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.Time:   true,
	atom.U:      true,
	atom.Var:    true,
}

// Parse parses rawHTML. It only fails when the input cannot be read as HTML.
func (p *HTMLParser) Parse(rawHTML string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	result := &Document{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	for _, sel := range contentSelectors {
		region := doc.Find(sel).First()
		if region.Length() == 0 {
			continue
		}
		if region.Contents().Length() > 0 {
			result.HasContent = true
			result.Content = extractText(region)
		}
		break
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			result.Hrefs = append(result.Hrefs, href)
		}
	})

	return result, nil
}

// extractText returns the visible text below the selection.
func extractText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
	}

	block := n.Type == html.ElementNode && !inlineElements[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}
