package model

import (
	"fmt"
	"reflect"
	"unicode/utf8"
)

const (
	// TypeDoc is the type of the document root.
	TypeDoc = "doc"
	// TypeText is the type of inline text runs.
	TypeText = "text"
	// NameText is the change entry name used for text runs.
	NameText = "$text"
)

// Doc represents the root document node in its JSON form.
type Doc struct {
	Version int     `json:"version"`
	Type    string  `json:"type"`
	Content []*Node `json:"content,omitempty"`
}

// Node represents any node in the document tree (e.g., paragraph, text, button).
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`

	parent *Node
	// revision is the model version of the last committed insert or remove
	// among the children.
	revision uint64
}

// Mark represents an attribute applied to a text node (e.g., strong, link).
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewText returns a detached text node carrying copies of marks.
func NewText(text string, marks ...Mark) *Node {
	n := &Node{Type: TypeText, Text: text}
	for _, m := range marks {
		n.Marks = append(n.Marks, m.Clone())
	}
	return n
}

// NewElement returns a detached element node with the given children.
func NewElement(nodeType string, attrs map[string]any, children ...*Node) *Node {
	n := &Node{Type: nodeType, Attrs: cloneAttrs(attrs), Content: children}
	for _, child := range children {
		child.parent = n
	}
	return n
}

// IsText reports whether the node is an inline text run.
func (n *Node) IsText() bool {
	return n != nil && n.Type == TypeText
}

// Parent returns the parent element or nil for the root and detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Name returns the node name used in change entries.
func (n *Node) Name() string {
	if n.IsText() {
		return NameText
	}
	return n.Type
}

// Size returns the number of model offsets the node occupies in its parent.
func (n *Node) Size() int {
	if n.IsText() {
		return utf8.RuneCountInString(n.Text)
	}
	return 1
}

// MaxOffset returns the offset just past the last child.
func (n *Node) MaxOffset() int {
	total := 0
	for _, child := range n.Content {
		total += child.Size()
	}
	return total
}

// Index returns the position of the node among its siblings, or -1.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, sibling := range n.parent.Content {
		if sibling == n {
			return i
		}
	}
	return -1
}

// StartOffset returns the offset of the node within its parent.
func (n *Node) StartOffset() int {
	if n.parent == nil {
		return 0
	}
	offset := 0
	for _, sibling := range n.parent.Content {
		if sibling == n {
			return offset
		}
		offset += sibling.Size()
	}
	return offset
}

// EndOffset returns the offset just past the node within its parent.
func (n *Node) EndOffset() int {
	return n.StartOffset() + n.Size()
}

// Ancestors returns the parent chain starting from the closest ancestor.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// Mark returns the mark of the given type if present.
func (n *Node) Mark(markType string) (Mark, bool) {
	for _, m := range n.Marks {
		if m.Type == markType {
			return m, true
		}
	}
	return Mark{}, false
}

// HasMark reports whether the node carries a mark of the given type.
func (n *Node) HasMark(markType string) bool {
	_, ok := n.Mark(markType)
	return ok
}

// GetStringAttr returns a string attribute or fallback when missing.
func (n *Node) GetStringAttr(key, fallback string) string {
	if value, ok := n.Attrs[key].(string); ok {
		return value
	}
	return fallback
}

// Walk visits the node and its descendants depth-first. Returning false from
// fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Content {
		child.Walk(fn)
	}
}

// Clone returns a detached deep copy of the node.
func (n *Node) Clone() *Node {
	cloned := &Node{
		Type:  n.Type,
		Text:  n.Text,
		Attrs: cloneAttrs(n.Attrs),
		Marks: cloneMarks(n.Marks),
	}
	if len(n.Content) > 0 {
		cloned.Content = make([]*Node, 0, len(n.Content))
		for _, child := range n.Content {
			c := child.Clone()
			c.parent = cloned
			cloned.Content = append(cloned.Content, c)
		}
	}
	return cloned
}

func (n *Node) String() string {
	if n.IsText() {
		return fmt.Sprintf("text(%q)", n.Text)
	}
	return n.Type
}

// GetStringAttr returns a string attribute of the mark or fallback.
func (m Mark) GetStringAttr(key, fallback string) string {
	if value, ok := m.Attrs[key].(string); ok {
		return value
	}
	return fallback
}

// Equal reports whether both marks have the same type and attributes.
func (m Mark) Equal(other Mark) bool {
	return m.Type == other.Type && attrsEqual(m.Attrs, other.Attrs)
}

// Clone returns a copy of the mark with its own attribute map.
func (m Mark) Clone() Mark {
	return Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
}

func attrsEqual(left, right map[string]any) bool {
	if len(left) != len(right) {
		return false
	}
	for key, leftValue := range left {
		rightValue, ok := right[key]
		if !ok || !reflect.DeepEqual(leftValue, rightValue) {
			return false
		}
	}
	return true
}

func cloneAttrs(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func cloneMarks(src []Mark) []Mark {
	if src == nil {
		return nil
	}
	dst := make([]Mark, 0, len(src))
	for _, m := range src {
		dst = append(dst, m.Clone())
	}
	return dst
}

// adopt links every descendant of n to its parent.
func adopt(n *Node) {
	for _, child := range n.Content {
		child.parent = n
		adopt(child)
	}
}
