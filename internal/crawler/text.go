package crawler

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// minParagraphLength drops menu entries, buttons and other short fragments
const minParagraphLength = 30

var droppedTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Svg:      true,
	atom.Input:    true,
	atom.Noscript: true,
}

var textTags = map[atom.Atom]bool{
	atom.P:  true,
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
	atom.Li: true,
}

// stripNodes removes page chrome and non-content elements in place
func stripNodes(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && droppedTags[c.DataAtom] {
			n.RemoveChild(c)
		} else {
			stripNodes(c)
		}
		c = next
	}
}

// readableText returns the text of every paragraph, heading and list item, one element per line
func readableText(doc *html.Node) string {
	var lines []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && textTags[n.DataAtom] {
			lines = append(lines, nodeText(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(lines, "\n")
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// SplitChunks keeps the lines longer than the paragraph threshold and packs them
// into chunks of at most maxWords words. A single longer paragraph forms its own chunk.
func SplitChunks(text string, maxWords int) []string {
	var (
		chunks  []string
		current []string
		words   int
	)

	for _, line := range strings.Split(text, "\n") {
		p := strings.TrimSpace(line)
		if utf8.RuneCountInString(p) <= minParagraphLength {
			continue
		}

		n := len(strings.Fields(p))
		if words > 0 && words+n > maxWords {
			chunks = append(chunks, strings.Join(current, " "))
			current, words = nil, 0
		}
		current = append(current, p)
		words += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
