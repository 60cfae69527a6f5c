package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rgonek/linkit/model"
)

var inlineMarks = map[atom.Atom]string{
	atom.Strong: "strong",
	atom.B:      "strong",
	atom.Em:     "em",
	atom.I:      "em",
	atom.U:      "underline",
	atom.S:      "strike",
	atom.Del:    "strike",
	atom.Strike: "strike",
	atom.Code:   "code",
}

var blockTypes = map[atom.Atom]string{
	atom.P:          "paragraph",
	atom.Blockquote: "blockquote",
	atom.Hr:         "rule",
}

// HTML parses an HTML fragment into a document. Anchors with an href become
// link marks carrying every anchor attribute; unknown elements are kept as
// elements of the same type; inline content at the top level is wrapped in
// paragraphs.
func HTML(r io.Reader) (model.Doc, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return model.Doc{}, fmt.Errorf("parse html: %w", err)
	}
	return model.Doc{Version: 1, Type: model.TypeDoc, Content: convertBlocks(nodes)}, nil
}

// HTMLString parses an HTML fragment held in a string.
func HTMLString(src string) (model.Doc, error) {
	return HTML(strings.NewReader(src))
}

func convertBlocks(nodes []*html.Node) []*model.Node {
	var out []*model.Node
	var loose []*model.Node
	flush := func() {
		if len(loose) > 0 {
			out = append(out, model.NewElement("paragraph", nil, loose...))
			loose = nil
		}
	}

	for _, n := range nodes {
		switch {
		case n.Type == html.TextNode && len(loose) == 0 && strings.TrimSpace(n.Data) == "":
			continue
		case isInline(n):
			for _, converted := range convertInline(n, newMarkStack()) {
				loose = appendInlineNode(loose, converted)
			}
		case n.Type == html.ElementNode:
			flush()
			out = append(out, convertElement(n))
		}
	}
	flush()
	return out
}

func convertElement(n *html.Node) *model.Node {
	nodeType, ok := blockTypes[n.DataAtom]
	attrs := elementAttrs(n)
	if level, heading := headingLevel(n.DataAtom); heading {
		nodeType, ok = "heading", true
		if attrs == nil {
			attrs = make(map[string]any, 1)
		}
		attrs["level"] = level
	}
	if !ok {
		nodeType = n.Data
	}

	var children []*model.Node
	if hasBlockChild(n) {
		children = convertBlocks(childNodes(n))
	} else {
		stack := newMarkStack()
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			for _, converted := range convertInline(child, stack) {
				children = appendInlineNode(children, converted)
			}
		}
	}
	return model.NewElement(nodeType, attrs, children...)
}

func convertInline(n *html.Node, stack *markStack) []*model.Node {
	switch n.Type {
	case html.TextNode:
		return []*model.Node{model.NewText(n.Data, stack.current()...)}
	case html.ElementNode:
	default:
		return nil
	}

	if n.DataAtom == atom.Br {
		return []*model.Node{model.NewElement("hardBreak", nil)}
	}

	markType, isMark := inlineMarks[n.DataAtom]
	var mark model.Mark
	switch {
	case isMark:
		mark = model.Mark{Type: markType}
	case n.DataAtom == atom.A:
		attrs := elementAttrs(n)
		if href, ok := attrs["href"].(string); !ok || strings.TrimSpace(href) == "" {
			return convertInlineChildren(n, stack)
		}
		markType, mark = "link", model.Mark{Type: "link", Attrs: attrs}
	case n.DataAtom == atom.Span:
		return convertInlineChildren(n, stack)
	default:
		return []*model.Node{convertElement(n)}
	}

	stack.push(mark)
	content := convertInlineChildren(n, stack)
	stack.popByType(markType)
	return content
}

func convertInlineChildren(n *html.Node, stack *markStack) []*model.Node {
	var content []*model.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		for _, converted := range convertInline(child, stack) {
			content = appendInlineNode(content, converted)
		}
	}
	return content
}

func isInline(n *html.Node) bool {
	if n.Type == html.TextNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	if _, ok := inlineMarks[n.DataAtom]; ok {
		return true
	}
	switch n.DataAtom {
	case atom.A, atom.Span, atom.Br:
		return true
	}
	return false
}

// hasBlockChild reports whether n holds a block element, which makes its
// content a block sequence instead of inline text.
func hasBlockChild(n *html.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || isInline(child) {
			continue
		}
		if _, ok := blockTypes[child.DataAtom]; ok {
			return true
		}
		if _, heading := headingLevel(child.DataAtom); heading {
			return true
		}
		switch child.DataAtom {
		case atom.Div, atom.Section, atom.Article, atom.Ul, atom.Ol, atom.Li, atom.Table:
			return true
		}
	}
	return false
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, child)
	}
	return out
}

func elementAttrs(n *html.Node) map[string]any {
	if len(n.Attr) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(n.Attr))
	for _, attr := range n.Attr {
		attrs[attr.Key] = attr.Val
	}
	return attrs
}

func headingLevel(a atom.Atom) (int, bool) {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level, err := strconv.Atoi(a.String()[1:])
		return level, err == nil
	}
	return 0, false
}
