package model

import (
	"fmt"
	"reflect"
)

// ChangeType categorizes change entries.
type ChangeType string

const (
	ChangeInsert    ChangeType = "insert"
	ChangeRemove    ChangeType = "remove"
	ChangeAttribute ChangeType = "attribute"
)

// Change is a single entry of a change batch.
type Change struct {
	Type   ChangeType
	Parent *Node
	// Node is the inserted, removed, or re-attributed element, when there is one.
	Node   *Node
	Offset int
	Length int
	// Name is the node name for insert and remove entries.
	Name string
	// Key is the mark type or attribute key for attribute entries.
	Key string
}

// Batch is the committed result of one change block.
type Batch struct {
	Changes []Change
	Version uint64
}

// IsEmpty reports whether the batch changed nothing.
func (b Batch) IsEmpty() bool {
	return len(b.Changes) == 0
}

// Writer is the only way to mutate a model. It exists for the duration of a
// change block and can undo everything it did.
type Writer struct {
	model   *Model
	changes []Change
	seeds   []Change
	undo    []func()
}

// Model returns the model the writer belongs to.
func (w *Writer) Model() *Model {
	return w.model
}

func (w *Writer) record(change Change) {
	w.changes = append(w.changes, change)
}

func (w *Writer) rollback() {
	for i := len(w.undo) - 1; i >= 0; i-- {
		w.undo[i]()
	}
	w.undo = nil
	w.changes = nil
	w.seeds = nil
}

// split makes offset a child boundary of parent, splitting a text run if needed.
func (w *Writer) split(parent *Node, offset int) {
	idx, inner := childAt(parent, offset)
	if inner == 0 || idx >= len(parent.Content) {
		return
	}
	node := parent.Content[idx]
	if !node.IsText() {
		return
	}
	runes := []rune(node.Text)
	original := node.Text
	right := &Node{
		Type:   TypeText,
		Text:   string(runes[inner:]),
		Marks:  cloneMarks(node.Marks),
		Attrs:  cloneAttrs(node.Attrs),
		parent: parent,
	}
	node.Text = string(runes[:inner])
	parent.Content = insertAt(parent.Content, idx+1, right)

	w.undo = append(w.undo, func() {
		node.Text = original
		parent.Content = removeNode(parent.Content, right)
		right.parent = nil
	})
}

func (w *Writer) checkRange(r Range) error {
	parent := r.Parent()
	if parent == nil || !w.model.Contains(parent) {
		return fmt.Errorf("range %v: %w", r, ErrDetached)
	}
	if r.Start.Parent != r.End.Parent {
		return &StructuralViolationError{Parent: parent.Type, Reason: "range crosses a container boundary"}
	}
	if r.Start.Offset < 0 || r.End.Offset < r.Start.Offset || r.End.Offset > parent.MaxOffset() {
		return fmt.Errorf("range %v is out of bounds", r)
	}
	return nil
}

// eachText walks the text runs overlapping r. For every run where needs
// returns true the run is split to the range boundaries and apply is called
// on the covered part. It reports whether apply ran at least once.
func (w *Writer) eachText(r Range, needs func(*Node) bool, apply func(*Node)) bool {
	parent := r.Parent()
	changed := false
	for offset := r.Start.Offset; offset < r.End.Offset; {
		idx, inner := childAt(parent, offset)
		node := parent.Content[idx]
		nodeEnd := offset - inner + node.Size()
		segEnd := min(nodeEnd, r.End.Offset)
		if node.IsText() && needs(node) {
			if inner > 0 {
				w.split(parent, offset)
				node = parent.Content[idx+1]
			}
			if segEnd < nodeEnd {
				w.split(parent, segEnd)
			}
			apply(node)
			changed = true
		}
		offset = segEnd
	}
	return changed
}

// SetMark sets mark on all text in r, replacing any mark of the same type.
// Text that already carries an identical mark is left alone, so repeating a
// write records nothing.
func (w *Writer) SetMark(r Range, mark Mark) error {
	if err := w.checkRange(r); err != nil {
		return err
	}
	parent := r.Parent()
	for _, n := range r.Nodes() {
		if !n.IsText() {
			return &StructuralViolationError{
				Parent: parent.Type,
				Mark:   mark.Type,
				Reason: fmt.Sprintf("range crosses into element %q", n.Type),
			}
		}
	}
	if !r.IsCollapsed() {
		if err := w.model.schema.CheckMark(parent, mark.Type); err != nil {
			return err
		}
	}

	changed := w.eachText(r,
		func(n *Node) bool {
			current, ok := n.Mark(mark.Type)
			return !ok || !current.Equal(mark)
		},
		func(n *Node) {
			w.setNodeMark(n, mark)
		},
	)
	if changed {
		w.record(Change{
			Type:   ChangeAttribute,
			Parent: parent,
			Offset: r.Start.Offset,
			Length: r.End.Offset - r.Start.Offset,
			Key:    mark.Type,
		})
	}
	return nil
}

// RemoveMark removes marks of markType from all text in r.
func (w *Writer) RemoveMark(r Range, markType string) error {
	if err := w.checkRange(r); err != nil {
		return err
	}
	changed := w.eachText(r,
		func(n *Node) bool { return n.HasMark(markType) },
		func(n *Node) { w.removeNodeMark(n, markType) },
	)
	if changed {
		w.record(Change{
			Type:   ChangeAttribute,
			Parent: r.Parent(),
			Offset: r.Start.Offset,
			Length: r.End.Offset - r.Start.Offset,
			Key:    markType,
		})
	}
	return nil
}

func (w *Writer) setNodeMark(n *Node, mark Mark) {
	previous := n.Marks
	next := make([]Mark, 0, len(previous)+1)
	replaced := false
	for _, m := range previous {
		if m.Type == mark.Type {
			next = append(next, mark.Clone())
			replaced = true
			continue
		}
		next = append(next, m)
	}
	if !replaced {
		next = append(next, mark.Clone())
	}
	n.Marks = next
	w.undo = append(w.undo, func() { n.Marks = previous })
}

func (w *Writer) removeNodeMark(n *Node, markType string) {
	previous := n.Marks
	var next []Mark
	for _, m := range previous {
		if m.Type != markType {
			next = append(next, m)
		}
	}
	n.Marks = next
	w.undo = append(w.undo, func() { n.Marks = previous })
}

// Insert places detached nodes at pos.
func (w *Writer) Insert(pos Position, nodes ...*Node) error {
	parent := pos.Parent
	if parent == nil || !w.model.Contains(parent) {
		return fmt.Errorf("insert at %v: %w", pos, ErrDetached)
	}
	if pos.Offset < 0 || pos.Offset > parent.MaxOffset() {
		return fmt.Errorf("insert position %v is out of bounds", pos)
	}
	for _, n := range nodes {
		if n.parent != nil {
			return fmt.Errorf("insert %v: node is already attached", n)
		}
	}

	w.split(parent, pos.Offset)
	idx, _ := childAt(parent, pos.Offset)
	offset := pos.Offset
	for i, n := range nodes {
		node := n
		node.parent = parent
		adopt(node)
		parent.Content = insertAt(parent.Content, idx+i, node)
		w.undo = append(w.undo, func() {
			parent.Content = removeNode(parent.Content, node)
			node.parent = nil
		})
		w.record(Change{
			Type:   ChangeInsert,
			Parent: parent,
			Node:   node,
			Offset: offset,
			Length: node.Size(),
			Name:   node.Name(),
		})
		offset += node.Size()
	}
	return w.checkInserted(nodes)
}

// checkInserted validates the marks of inserted text against the schema.
// The nodes are attached by then so ancestor rules apply; a violation fails
// the block, which undoes the insert.
func (w *Writer) checkInserted(nodes []*Node) error {
	var err error
	for _, n := range nodes {
		n.Walk(func(cur *Node) bool {
			if err != nil {
				return false
			}
			if !cur.IsText() {
				return true
			}
			for _, m := range cur.Marks {
				if err = w.model.schema.CheckMark(cur.parent, m.Type); err != nil {
					err = fmt.Errorf("insert %v: %w", cur, err)
					return false
				}
			}
			return false
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Remove detaches everything inside r.
func (w *Writer) Remove(r Range) error {
	if err := w.checkRange(r); err != nil {
		return err
	}
	if r.IsCollapsed() {
		return nil
	}
	parent := r.Parent()
	w.split(parent, r.Start.Offset)
	w.split(parent, r.End.Offset)
	for _, n := range r.Nodes() {
		node := n
		idx := node.Index()
		offset := node.StartOffset()
		parent.Content = removeNode(parent.Content, node)
		node.parent = nil
		w.undo = append(w.undo, func() {
			node.parent = parent
			parent.Content = insertAt(parent.Content, idx, node)
		})
		w.record(Change{
			Type:   ChangeRemove,
			Parent: parent,
			Node:   node,
			Offset: offset,
			Length: node.Size(),
			Name:   node.Name(),
		})
	}
	return nil
}

// RemoveNode detaches a single attached node.
func (w *Writer) RemoveNode(n *Node) error {
	if n.parent == nil {
		return fmt.Errorf("remove %v: %w", n, ErrDetached)
	}
	return w.Remove(RangeOn(n))
}

// SetAttribute sets an element attribute.
func (w *Writer) SetAttribute(n *Node, key string, value any) error {
	if !w.model.Contains(n) {
		return fmt.Errorf("set attribute %q: %w", key, ErrDetached)
	}
	previous, had := n.Attrs[key]
	if had && reflect.DeepEqual(previous, value) {
		return nil
	}
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}
	n.Attrs[key] = value
	w.undo = append(w.undo, func() {
		if had {
			n.Attrs[key] = previous
		} else {
			delete(n.Attrs, key)
		}
	})
	w.recordAttribute(n, key)
	return nil
}

// RemoveAttribute deletes an element attribute.
func (w *Writer) RemoveAttribute(n *Node, key string) error {
	if !w.model.Contains(n) {
		return fmt.Errorf("remove attribute %q: %w", key, ErrDetached)
	}
	previous, had := n.Attrs[key]
	if !had {
		return nil
	}
	delete(n.Attrs, key)
	w.undo = append(w.undo, func() { n.Attrs[key] = previous })
	w.recordAttribute(n, key)
	return nil
}

func (w *Writer) recordAttribute(n *Node, key string) {
	change := Change{Type: ChangeAttribute, Parent: n.parent, Node: n, Length: 1, Key: key}
	if n.parent != nil {
		change.Offset = n.StartOffset()
	}
	w.record(change)
}

func insertAt(nodes []*Node, idx int, n *Node) []*Node {
	nodes = append(nodes, nil)
	copy(nodes[idx+1:], nodes[idx:])
	nodes[idx] = n
	return nodes
}

func removeNode(nodes []*Node, n *Node) []*Node {
	for i, candidate := range nodes {
		if candidate == n {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}
