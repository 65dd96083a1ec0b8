package crawler

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseDocument parses body into a DOM once, for both outlink extraction
// and text extraction to share.
func ParseDocument(body io.Reader) (*html.Node, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML document: %w", err)
	}
	return doc, nil
}

// ExtractOutlinks collects the href attribute of every anchor element in
// doc. Relative URL resolution is deliberately NOT performed here; that is
// rejected downstream by the Processor's absolute-URL filter. If
// protocols is non-empty, only hrefs whose literal prefix matches one of
// the listed protocols are kept; otherwise every href is kept unmodified.
func ExtractOutlinks(doc *html.Node, protocols []string) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || attr.Val == "" {
					continue
				}
				if len(protocols) == 0 || hasAnyPrefix(attr.Val, protocols) {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return hrefs
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ExtractText concatenates every text node in doc, in document order,
// skipping script and style content.
func ExtractText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return sb.String()
}
