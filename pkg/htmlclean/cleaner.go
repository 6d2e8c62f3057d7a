// Package htmlclean reduces page HTML to what an agent needs: the semantic
// element tree with targeting attributes, or plain readable text.
package htmlclean

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is cleaned page content with its metadata.
type Page struct {
	Title       string
	Description string
	// Body is cleaned HTML from Clean or plain text from Text.
	Body      string
	Truncated bool
}

var (
	skipped = atomSet(atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Embed, atom.Object, atom.Svg, atom.Template, atom.Head)

	blocks = atomSet(
		atom.Div, atom.P, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Nav, atom.Main, atom.Aside,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Ul, atom.Ol, atom.Li,
		atom.Table, atom.Tr, atom.Td, atom.Th, atom.Form, atom.Fieldset, atom.Blockquote, atom.Pre,
		atom.Br, atom.Hr, atom.Body, atom.Html,
	)

	voids = atomSet(
		atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img, atom.Input,
		atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr,
	)

	globalAttrs = map[string]bool{"id": true, "class": true, "role": true, "aria-label": true, "aria-describedby": true}

	tagAttrs = map[atom.Atom][]string{
		atom.A:        {"href", "target"},
		atom.Img:      {"src", "alt"},
		atom.Input:    {"name", "type", "placeholder", "value"},
		atom.Textarea: {"name", "placeholder"},
		atom.Select:   {"name"},
		atom.Option:   {"value", "selected"},
		atom.Button:   {"type", "name"},
		atom.Form:     {"action", "method"},
		atom.Label:    {"for"},
		atom.Table:    {"summary"},
	}
)

func atomSet(atoms ...atom.Atom) map[atom.Atom]bool {
	set := make(map[atom.Atom]bool, len(atoms))
	for _, a := range atoms {
		set[a] = true
	}
	return set
}

// Clean parses rawHTML and rebuilds it without scripts, styles, comments
// and presentational attributes. Output stops once maxLength bytes of
// markup and text have been written.
func Clean(rawHTML string, maxLength int) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	w := &writer{max: maxLength}
	w.markup(doc, 0)

	return &Page{
		Title:       title(doc),
		Description: metaDescription(doc),
		Body:        w.b.String(),
		Truncated:   w.full,
	}, nil
}

// writer accumulates output up to max bytes.
type writer struct {
	b    strings.Builder
	n    int
	max  int
	full bool
}

func (w *writer) write(s string) {
	w.b.WriteString(s)
	w.n += len(s)
}

// text writes s, cutting it at the limit.
func (w *writer) text(s string) {
	if w.full {
		return
	}
	if w.n+len(s) > w.max {
		s = truncate(s, w.max-w.n) + "..."
		w.full = true
	}
	w.write(s)
}

func (w *writer) markup(n *html.Node, depth int) {
	if w.full || w.n >= w.max {
		w.full = true
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			w.text(t)
		}
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		w.element(n, depth)
		return
	}

	for c := n.FirstChild; c != nil && !w.full; c = c.NextSibling {
		w.markup(c, depth)
	}
}

func (w *writer) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	block := blocks[n.DataAtom]

	if depth > 0 && block {
		w.b.WriteString("\n" + strings.Repeat("  ", depth))
	}

	w.write("<" + tag)
	for _, a := range n.Attr {
		if keepAttribute(n.DataAtom, a.Key) {
			w.write(fmt.Sprintf(` %s="%s"`, a.Key, html.EscapeString(a.Val)))
		}
	}
	w.write(">")

	for c := n.FirstChild; c != nil && !w.full; c = c.NextSibling {
		w.markup(c, depth+1)
	}

	if voids[n.DataAtom] {
		return
	}
	if block {
		w.b.WriteString("\n" + strings.Repeat("  ", depth))
	}
	w.write("</" + tag + ">")
}

// keepAttribute reports whether an attribute helps target or understand an
// element.
func keepAttribute(tag atom.Atom, key string) bool {
	key = strings.ToLower(key)
	if globalAttrs[key] || strings.HasPrefix(key, "data-") {
		return true
	}
	for _, k := range tagAttrs[tag] {
		if k == key {
			return true
		}
	}
	return false
}

func title(doc *html.Node) string {
	n := find(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if n == nil || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

func metaDescription(doc *html.Node) string {
	n := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "name"), "description") && attr(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
