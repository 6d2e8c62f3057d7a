package htmlclean

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Text extracts the readable text of rawHTML. Block elements start new
// lines, runs of whitespace collapse to one space, and the body is cut at
// maxLength bytes with a truncation note.
func Text(rawHTML string, maxLength int) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode, html.DoctypeNode:
			return
		case html.TextNode:
			if words := strings.Fields(n.Data); len(words) > 0 {
				// adjacent inline text like <b>foo</b>bar stays joined
				if cur.Len() > 0 && startsWithSpace(n.Data) && !strings.HasSuffix(cur.String(), " ") {
					cur.WriteByte(' ')
				}
				cur.WriteString(strings.Join(words, " "))
				if endsWithSpace(n.Data) {
					cur.WriteByte(' ')
				}
			} else if n.Data != "" && cur.Len() > 0 && !strings.HasSuffix(cur.String(), " ") {
				cur.WriteByte(' ')
			}
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
		}

		block := n.Type == html.ElementNode && (blocks[n.DataAtom] || n.DataAtom == atom.Option)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	body := strings.Join(lines, "\n")
	page := &Page{Title: title(doc), Description: metaDescription(doc), Body: body}
	if maxLength > 0 {
		page.Body, page.Truncated = Limit(body, maxLength)
	}
	return page, nil
}

// Limit cuts plain text to at most maxLength bytes on a rune boundary and
// appends a note saying how much was kept.
func Limit(s string, maxLength int) (string, bool) {
	if len(s) <= maxLength {
		return s, false
	}
	cut := truncate(s, maxLength)
	return cut + fmt.Sprintf("\n\n[Content truncated: %d of %d bytes shown]", len(cut), len(s)), true
}

// LooksLikeHTML reports whether s appears to be an HTML document or
// fragment rather than plain text.
func LooksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return false
	}
	lower := strings.ToLower(s[:min(len(s), 512)])
	for _, marker := range []string{"<!doctype", "<html", "<body", "<head", "<div", "<p", "<span", "<main", "<section"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func startsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\n\r\f", rune(s[0]))
}

func endsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\n\r\f", rune(s[len(s)-1]))
}
