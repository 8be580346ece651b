// Package extract finds the job description inside a rendered page and
// pulls the posting's metadata out of it.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/jd-scraper/internal/domain"
	"golang.org/x/net/html"
)

// StripTags never contain job content and are removed from the whole tree
// before anything is located or measured.
var StripTags = []string{"nav", "footer", "header", "aside", "script", "style", "noscript", "iframe", "form", "svg"}

// Parse builds a document from rendered HTML.
func Parse(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	return doc, nil
}

// Prune removes StripTags elements from doc in place.
func Prune(doc *goquery.Document) {
	doc.Find(strings.Join(StripTags, ", ")).Remove()
}

// Text joins the trimmed, non-empty text nodes under s with sep.
func Text(s *goquery.Selection, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// textLen counts characters, not bytes, of the tightly joined text.
func textLen(s *goquery.Selection) int {
	return utf8.RuneCountInString(Text(s, ""))
}

// CleanText collapses whitespace runs, non-breaking spaces included.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
