package fetch

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document wraps a parsed HTML page with the line-oriented text view the
// scrapers scan.
type Document struct {
	*goquery.Document
}

func ParseDocument(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Document{Document: doc}, nil
}

// TextLines flattens the body into trimmed, non-empty lines, one per text
// node, preserving document order.
func (d *Document) TextLines() []string {
	body := d.Find("body")
	if body.Length() == 0 {
		return selectionLines(d.Selection)
	}
	return selectionLines(body)
}

func selectionLines(sel *goquery.Selection) []string {
	var lines []string
	for _, node := range sel.Nodes {
		collectTextLines(node, &lines)
	}
	return lines
}

func collectTextLines(node *html.Node, lines *[]string) {
	if node.Type == html.TextNode {
		text := strings.TrimSpace(node.Data)
		if text != "" {
			// A single text node can still hold embedded newlines.
			for _, part := range strings.Split(text, "\n") {
				part = strings.TrimSpace(part)
				if part != "" {
					*lines = append(*lines, part)
				}
			}
		}
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextLines(child, lines)
	}
}

// AbsoluteURL resolves href against base, mirroring how listing links are
// turned into detail-page URLs.
func AbsoluteURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
