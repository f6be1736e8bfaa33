package scrape

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Card is one outlet entry as it appears in the listing markup, before
// hours normalization.
type Card struct {
	Name    string
	Address string
	Hours   string
}

// ParseListing extracts outlet cards from a listing page. A page with
// no cards parses to an empty slice, which callers treat as the end of
// pagination.
func ParseListing(page []byte) ([]Card, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	var cards []Card
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "outlet-card") {
			cards = append(cards, parseCard(n))
		}
	})
	return cards, nil
}

func parseCard(card *html.Node) Card {
	var c Card
	walk(card, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch {
		case hasClass(n, "outlet-name"):
			c.Name = textContent(n)
		case hasClass(n, "outlet-address"):
			c.Address = textContent(n)
		case hasClass(n, "outlet-hours"):
			c.Hours = textContent(n)
		}
	})
	return c
}

// walk visits every node under root in document order.
func walk(root *html.Node, visit func(*html.Node)) {
	visit(root)
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// textContent collects and whitespace-normalizes all text under a node.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
