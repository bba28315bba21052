// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// maxTextExtract caps the characters any page-text extraction can return.
const maxTextExtract = 50000

// strippedElements are removed before text extraction; they carry
// boilerplate or non-content markup.
var strippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"header":   {},
	"footer":   {},
	"nav":      {},
	"aside":    {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// extractTextFromHTML parses an HTML document and returns its title and
// readable body text.
//
// Outputs:
//   - title: The contents of the first <title> element, whitespace-trimmed.
//   - text: Body text with boilerplate elements removed and whitespace
//     collapsed, truncated to maxChars at a word boundary.
//   - truncated: True if the extracted text exceeded maxChars.
func extractTextFromHTML(doc string, maxChars int) (title, text string, truncated bool) {
	if maxChars <= 0 || maxChars > maxTextExtract {
		maxChars = maxTextExtract
	}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", "", false
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && title == "" {
				title = strings.TrimSpace(nodeText(n))
				return
			}
			if _, skip := strippedElements[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(sb.String(), " "))

	if len(text) > maxChars {
		truncated = true
		text = text[:maxChars]
		// Break at a word boundary when one falls in the tail region.
		if lastSpace := strings.LastIndex(text, " "); lastSpace > maxChars/2 {
			text = text[:lastSpace] + "..."
		}
	}

	return title, text, truncated
}

// nodeText concatenates the text content of a node's subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// hasClass reports whether an element node carries the given class.
func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// findAllByClass returns element nodes with the given tag and class, in
// document order.
func findAllByClass(root *html.Node, tag, class string) []*html.Node {
	var found []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// findFirstByClass returns the first matching descendant, or nil.
func findFirstByClass(root *html.Node, tag, class string) *html.Node {
	nodes := findAllByClass(root, tag, class)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}
