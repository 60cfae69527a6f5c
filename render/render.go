// Package render downcasts model nodes to HTML. The output is what the link
// selector receives as the editor data snapshot and what the CLI prints.
package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rgonek/linkit/model"
)

// Element types with a fixed HTML tag. Other elements render with their type
// as the tag name.
var blockTags = map[string]string{
	"paragraph":  "p",
	"blockquote": "blockquote",
	"hardBreak":  "br",
	"rule":       "hr",
}

// Mark types with a fixed HTML tag. Unknown marks are not rendered.
var markTags = map[string]string{
	"link":      "a",
	"strong":    "strong",
	"em":        "em",
	"underline": "u",
	"strike":    "s",
	"code":      "code",
}

// markPriority orders nested mark tags; lower values wrap higher ones so a
// link always encloses the formatting of its text.
var markPriority = map[string]int{
	"link":      0,
	"strong":    1,
	"em":        2,
	"underline": 3,
	"strike":    4,
	"code":      5,
}

// HTML renders nodes as a single HTML fragment.
func HTML(nodes ...*model.Node) (string, error) {
	var buf bytes.Buffer
	for _, h := range Nodes(nodes...) {
		if err := html.Render(&buf, h); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

// Document renders the content of doc.
func Document(doc model.Doc) (string, error) {
	return HTML(doc.Content...)
}

// Nodes converts model nodes to detached HTML nodes.
func Nodes(nodes ...*model.Node) []*html.Node {
	holder := &html.Node{Type: html.DocumentNode}
	appendContent(holder, nodes)

	var out []*html.Node
	for child := holder.FirstChild; child != nil; {
		next := child.NextSibling
		holder.RemoveChild(child)
		out = append(out, child)
		child = next
	}
	return out
}

// appendContent renders children into parent. Consecutive text runs share
// their mark elements.
func appendContent(parent *html.Node, children []*model.Node) {
	var run []*model.Node
	flush := func() {
		if len(run) > 0 {
			appendInline(parent, run)
			run = nil
		}
	}
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.IsText() {
			run = append(run, child)
			continue
		}
		flush()
		parent.AppendChild(convertElement(child))
	}
	flush()
}

func convertElement(n *model.Node) *html.Node {
	tag, ok := blockTags[n.Type]
	skip := ""
	if !ok {
		tag = n.Type
	}
	if n.Type == "heading" {
		tag = "h" + strconv.Itoa(headingLevel(n))
		skip = "level"
	}

	el := newElement(tag, elementAttrs(n.Attrs, skip))
	if !isVoid(tag) {
		appendContent(el, n.Content)
	}
	return el
}

// appendInline renders a run of text siblings. Marks shared with the previous
// run are kept open; the rest are closed and reopened in priority order.
func appendInline(parent *html.Node, texts []*model.Node) {
	stack := []*html.Node{parent}
	var active []model.Mark
	for _, t := range texts {
		current := sortedMarks(t.Marks)
		common := 0
		for common < len(active) && common < len(current) && active[common].Equal(current[common]) {
			common++
		}
		stack = stack[:common+1]
		for _, m := range current[common:] {
			el := markElement(m)
			stack[len(stack)-1].AppendChild(el)
			stack = append(stack, el)
		}
		stack[len(stack)-1].AppendChild(&html.Node{Type: html.TextNode, Data: t.Text})
		active = current
	}
}

func sortedMarks(marks []model.Mark) []model.Mark {
	out := make([]model.Mark, 0, len(marks))
	for _, m := range marks {
		if _, ok := markTags[m.Type]; ok {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Mark) int {
		return markPriority[a.Type] - markPriority[b.Type]
	})
	return out
}

func markElement(m model.Mark) *html.Node {
	tag := markTags[m.Type]
	if m.Type != "link" {
		return newElement(tag, nil)
	}
	var attrs []html.Attribute
	if href, ok := m.Attrs["href"]; ok {
		attrs = append(attrs, html.Attribute{Key: "href", Val: attrString(href)})
	}
	attrs = append(attrs, elementAttrs(m.Attrs, "href")...)
	return newElement(tag, attrs)
}

func newElement(tag string, attrs []html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// elementAttrs converts attributes in key order, leaving out skip.
func elementAttrs(attrs map[string]any, skip string) []html.Attribute {
	var out []html.Attribute
	for _, key := range slices.Sorted(maps.Keys(attrs)) {
		if key == skip || attrs[key] == nil {
			continue
		}
		out = append(out, html.Attribute{Key: key, Val: attrString(attrs[key])})
	}
	return out
}

func attrString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func headingLevel(n *model.Node) int {
	level := 1
	switch v := n.Attrs["level"].(type) {
	case int:
		level = v
	case float64:
		level = int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			level = parsed
		}
	}
	return min(max(level, 1), 6)
}

func isVoid(tag string) bool {
	switch tag {
	case "br", "hr", "img", "input":
		return true
	}
	return false
}

// HasClass reports whether the element's class attribute lists class. A
// leading dot is ignored so CSS class selectors can be passed as is.
func HasClass(n *model.Node, class string) bool {
	class = strings.TrimPrefix(strings.TrimSpace(class), ".")
	if n == nil || n.IsText() || class == "" {
		return false
	}
	return slices.Contains(strings.Fields(n.GetStringAttr("class", "")), class)
}

// ElementsWithClass returns the elements below scope carrying class, in
// document order. Matches are not searched for nested matches.
func ElementsWithClass(scope *model.Node, class string) []*model.Node {
	var out []*model.Node
	for _, child := range scope.Content {
		child.Walk(func(n *model.Node) bool {
			if HasClass(n, class) {
				out = append(out, n)
				return false
			}
			return !n.IsText()
		})
	}
	return out
}
