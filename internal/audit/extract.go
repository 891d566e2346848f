package audit

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Heading is one h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func (h Heading) String() string {
	return fmt.Sprintf("H%d: %s", h.Level, h.Text)
}

// Page is the readable content of an HTML document.
type Page struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Headings    []Heading `json:"headings"`
	Text        string    `json:"text"`
	WordCount   int       `json:"wordCount"`
	Links       []string  `json:"links"`
	Truncated   bool      `json:"truncated"`
}

// skipped elements never contribute text.
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"svg": true, "nav": true, "footer": true, "header": true,
	"template": true, "form": true,
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

// Extract parses an HTML document. Text is whitespace-collapsed and cut to
// maxChars runes when maxChars is positive; WordCount covers the full text.
func Extract(doc string, maxChars int) (*Page, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("audit: parse html: %w", err)
	}

	p := &Page{Headings: []Heading{}, Links: []string{}}
	var text strings.Builder
	seen := map[string]bool{}

	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if depth > 200 {
			return
		}
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteByte(' ')
			return
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
			switch n.Data {
			case "title":
				if p.Title == "" {
					p.Title = collapse(innerText(n))
				}
				return
			case "meta":
				if strings.EqualFold(attr(n, "name"), "description") {
					p.Description = collapse(attr(n, "content"))
				}
				return
			case "a":
				href := attr(n, "href")
				if (strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")) && !seen[href] {
					seen[href] = true
					p.Links = append(p.Links, href)
				}
			}
			if level, ok := headingLevels[n.Data]; ok {
				if t := collapse(innerText(n)); t != "" {
					p.Headings = append(p.Headings, Heading{Level: level, Text: t})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(root, 0)

	full := collapse(text.String())
	p.WordCount = len(strings.Fields(full))
	p.Text, p.Truncated = truncate(full, maxChars)
	return p, nil
}

func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s, false
	}
	return string(runes[:maxChars]), true
}
