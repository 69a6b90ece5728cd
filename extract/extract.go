// Package extract turns a page's HTML into readable markdown for the calling
// agent: sanitize, optionally scope to a selector, convert.
package extract

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Link is one hyperlink found in the extracted region.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Result is the extracted, converted content.
type Result struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
	Links    []Link `json:"links,omitempty"`

	// Truncated reports that Markdown was cut at Options.MaxChars.
	Truncated bool `json:"truncated,omitempty"`
}

// Options controls extraction.
type Options struct {
	// Selector scopes extraction to matching elements (simple CSS subset:
	// tag, .class, #id, tag.class, tag#id, descendant combinator). Empty
	// extracts the whole document.
	Selector string

	// BaseURL resolves relative links during markdown conversion.
	BaseURL string

	// MaxChars caps the markdown length. 0 means no cap.
	MaxChars int
}

// Extractor converts HTML to markdown. Safe for concurrent use.
type Extractor struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

// New creates an Extractor with the UGC sanitization policy and the
// commonmark+table conversion pipeline.
func New() *Extractor {
	return &Extractor{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// FromHTML extracts readable content from raw HTML.
func (e *Extractor) FromHTML(rawHTML string, opts Options) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}

	res := &Result{Title: findTitle(doc)}

	scope := rawHTML
	scopeNodes := []*html.Node{doc}
	if opts.Selector != "" {
		matches := querySelectorAll(doc, opts.Selector)
		if len(matches) == 0 {
			return nil, fmt.Errorf("extract: no content matched selector %q", opts.Selector)
		}
		var parts []string
		for _, n := range matches {
			parts = append(parts, renderNode(n))
		}
		scope = strings.Join(parts, "\n")
		scopeNodes = matches
	}

	for _, n := range scopeNodes {
		res.Links = append(res.Links, collectLinks(n)...)
	}

	clean := e.policy.Sanitize(scope)

	var convOpts []converter.ConvertOptionFunc
	if opts.BaseURL != "" {
		convOpts = append(convOpts, converter.WithDomain(opts.BaseURL))
	}
	md, err := e.conv.ConvertString(clean, convOpts...)
	if err != nil {
		return nil, fmt.Errorf("extract: convert: %w", err)
	}
	md = strings.TrimSpace(md)

	if opts.MaxChars > 0 && len(md) > opts.MaxChars {
		md = md[:opts.MaxChars]
		res.Truncated = true
	}
	res.Markdown = md
	return res, nil
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(collectText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

func collectLinks(root *html.Node) []Link {
	var links []Link
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, a := range n.Attr {
				if a.Key == "href" {
					href = a.Val
					break
				}
			}
			text := strings.TrimSpace(collectText(n))
			if href != "" && text != "" {
				links = append(links, Link{Text: text, Href: href})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return links
}
