package model

import "fmt"

// Position is a location between model offsets of a parent element.
// Text runs occupy one offset per rune, elements occupy a single offset.
type Position struct {
	Parent *Node
	Offset int
}

// childAt returns the index of the child covering offset and the offset
// relative to that child. An offset at the end of the parent returns
// len(parent.Content).
func childAt(parent *Node, offset int) (int, int) {
	start := 0
	for i, child := range parent.Content {
		size := child.Size()
		if offset < start+size {
			return i, offset - start
		}
		start += size
	}
	return len(parent.Content), 0
}

// NodeBefore returns the node ending at or containing the position.
func (p Position) NodeBefore() *Node {
	if p.Parent == nil {
		return nil
	}
	idx, inner := childAt(p.Parent, p.Offset)
	if inner > 0 {
		return p.Parent.Content[idx]
	}
	if idx > 0 {
		return p.Parent.Content[idx-1]
	}
	return nil
}

// NodeAfter returns the node starting at or containing the position.
func (p Position) NodeAfter() *Node {
	if p.Parent == nil {
		return nil
	}
	idx, _ := childAt(p.Parent, p.Offset)
	if idx < len(p.Parent.Content) {
		return p.Parent.Content[idx]
	}
	return nil
}

// TextNode returns the text node the position splits, if any.
func (p Position) TextNode() *Node {
	if p.Parent == nil {
		return nil
	}
	idx, inner := childAt(p.Parent, p.Offset)
	if inner > 0 && p.Parent.Content[idx].IsText() {
		return p.Parent.Content[idx]
	}
	return nil
}

func (p Position) String() string {
	if p.Parent == nil {
		return fmt.Sprintf("<detached>:%d", p.Offset)
	}
	return fmt.Sprintf("%v:%d", PathOf(p.Parent), p.Offset)
}

// Range is the half-open span [Start, End) inside a single parent element.
type Range struct {
	Start Position
	End   Position
}

// NewRange validates that both positions share a parent and are ordered.
func NewRange(start, end Position) (Range, error) {
	if start.Parent == nil || start.Parent != end.Parent {
		return Range{}, &StructuralViolationError{
			Parent: nodeType(start.Parent),
			Reason: "range crosses a container boundary",
		}
	}
	if start.Offset < 0 || end.Offset < start.Offset || end.Offset > start.Parent.MaxOffset() {
		return Range{}, fmt.Errorf("invalid range offsets [%d, %d) in %s", start.Offset, end.Offset, start.Parent.Type)
	}
	return Range{Start: start, End: end}, nil
}

// RangeIn returns the range covering all content of parent.
func RangeIn(parent *Node) Range {
	return Range{
		Start: Position{Parent: parent, Offset: 0},
		End:   Position{Parent: parent, Offset: parent.MaxOffset()},
	}
}

// RangeOn returns the range covering a single attached node.
func RangeOn(n *Node) Range {
	start := n.StartOffset()
	return Range{
		Start: Position{Parent: n.parent, Offset: start},
		End:   Position{Parent: n.parent, Offset: start + n.Size()},
	}
}

// CollapsedRange returns an empty range at pos.
func CollapsedRange(pos Position) Range {
	return Range{Start: pos, End: pos}
}

// Parent returns the element containing the range.
func (r Range) Parent() *Node {
	return r.Start.Parent
}

// IsCollapsed reports whether the range is empty.
func (r Range) IsCollapsed() bool {
	return r.Start.Offset == r.End.Offset
}

// Nodes returns the children overlapping the range without splitting them.
func (r Range) Nodes() []*Node {
	parent := r.Parent()
	if parent == nil || r.IsCollapsed() {
		return nil
	}
	var out []*Node
	start := 0
	for _, child := range parent.Content {
		end := start + child.Size()
		if end > r.Start.Offset && start < r.End.Offset {
			out = append(out, child)
		}
		start = end
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%v, %d)", r.Start, r.End.Offset)
}

// Selection is an ordered set of ranges.
type Selection struct {
	Ranges []Range
}

// NewSelection builds a selection from ranges.
func NewSelection(ranges ...Range) Selection {
	return Selection{Ranges: ranges}
}

// CollapsedAt builds a collapsed selection at pos.
func CollapsedAt(pos Position) Selection {
	return Selection{Ranges: []Range{CollapsedRange(pos)}}
}

// IsCollapsed reports whether the selection is a single caret position.
func (s Selection) IsCollapsed() bool {
	return len(s.Ranges) == 1 && s.Ranges[0].IsCollapsed()
}

// FirstPosition returns the start of the first range.
func (s Selection) FirstPosition() (Position, bool) {
	if len(s.Ranges) == 0 {
		return Position{}, false
	}
	return s.Ranges[0].Start, true
}

// AnchorNode returns the text node whose marks the selection reports.
// A caret takes them from the node before it and falls back to the node after.
// An expanded selection takes them from its first node.
func (s Selection) AnchorNode() *Node {
	pos, ok := s.FirstPosition()
	if !ok {
		return nil
	}
	if s.IsCollapsed() {
		if n := pos.NodeBefore(); n.IsText() {
			return n
		}
	}
	if n := pos.NodeAfter(); n.IsText() {
		return n
	}
	return nil
}

// Mark returns the selection's mark of the given type.
func (s Selection) Mark(markType string) (Mark, bool) {
	n := s.AnchorNode()
	if n == nil {
		return Mark{}, false
	}
	return n.Mark(markType)
}

// PathOf returns the child indexes leading from the root to n.
func PathOf(n *Node) []int {
	var path []int
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		path = append([]int{cur.Index()}, path...)
	}
	return path
}

func nodeType(n *Node) string {
	if n == nil {
		return ""
	}
	return n.Type
}
