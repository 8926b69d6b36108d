// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// pageDoc is the content pulled out of one fetched HTML document.
type pageDoc struct {
	title string
	body  string
	links []string
}

// skipTags hold chrome the corpus should never index.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
}

// headingPrefix maps heading tags to the Markdown markers the corpus
// chunker splits on.
var headingPrefix = map[string]string{
	"h1": "# ",
	"h2": "## ",
	"h3": "### ",
}

// parsePage extracts the title, a Markdown rendering of the readable
// text, and all anchor hrefs from an HTML document.
func parsePage(r io.Reader) (pageDoc, error) {
	root, err := html.Parse(r)
	if err != nil {
		return pageDoc{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var doc pageDoc
	var b strings.Builder
	walk(root, &doc, &b)
	doc.body = tidy(b.String())
	return doc, nil
}

func walk(n *html.Node, doc *pageDoc, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch {
		case skipTags[n.Data]:
			return
		case n.Data == "title":
			if doc.title == "" {
				doc.title = strings.TrimSpace(textContent(n))
			}
			return
		case n.Data == "a":
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" && !strings.HasPrefix(attr.Val, "#") {
					doc.links = append(doc.links, attr.Val)
				}
			}
		case headingPrefix[n.Data] != "":
			b.WriteString("\n\n" + headingPrefix[n.Data] + strings.TrimSpace(textContent(n)) + "\n\n")
			return
		case isBlock(n.Data):
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, doc, b)
	}

	if n.Type == html.ElementNode && isBlock(n.Data) {
		b.WriteString("\n")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "main", "li", "ul", "ol",
		"table", "tr", "br", "blockquote", "pre":
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// tidy trims each line and collapses runs of blank lines so the output
// reads as plain Markdown.
func tidy(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := true

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
