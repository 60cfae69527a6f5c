// Package model implements the document tree, positions, selections and
// transactional change blocks the link engine operates on.
package model

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultMaxPostfixPasses caps the postfix fixed-point loop.
const DefaultMaxPostfixPasses = 10

// Postfixer repairs the document after a change block. It receives the
// entries recorded since its previous invocation and writes fixes through w.
// Postfixers must be idempotent: a pass over an already fixed document must
// not record anything.
type Postfixer func(w *Writer, changes []Change) error

// Model owns a document tree. It is not safe for concurrent use.
type Model struct {
	root       *Node
	schema     *Schema
	postfixers []Postfixer
	maxPasses  int
	logger     *zap.Logger
	version    uint64
	writer     *Writer
}

// Option configures a Model.
type Option func(*Model)

// WithSchema sets the schema used to validate mark writes.
func WithSchema(schema *Schema) Option {
	return func(m *Model) {
		if schema != nil {
			m.schema = schema
		}
	}
}

// WithMaxPostfixPasses overrides DefaultMaxPostfixPasses.
func WithMaxPostfixPasses(passes int) Option {
	return func(m *Model) {
		if passes > 0 {
			m.maxPasses = passes
		}
	}
}

// WithLogger sets the logger for postfix diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds a model from a document. The document content is copied.
func New(doc Doc, opts ...Option) *Model {
	root := &Node{Type: TypeDoc}
	for _, child := range doc.Content {
		if child == nil {
			continue
		}
		c := child.Clone()
		c.parent = root
		root.Content = append(root.Content, c)
	}
	m := &Model{
		root:      root,
		schema:    NewSchema(),
		maxPasses: DefaultMaxPostfixPasses,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the document root element.
func (m *Model) Root() *Node {
	return m.root
}

// Schema returns the schema used by writers.
func (m *Model) Schema() *Schema {
	return m.schema
}

// Version increments with every committed non-empty batch.
func (m *Model) Version() uint64 {
	return m.version
}

// RegisterPostfixer appends a postfixer. Postfixers run in registration order.
func (m *Model) RegisterPostfixer(p Postfixer) {
	m.postfixers = append(m.postfixers, p)
}

// Doc returns a deep copy of the document.
func (m *Model) Doc() Doc {
	doc := Doc{Version: 1, Type: TypeDoc}
	for _, child := range m.root.Content {
		doc.Content = append(doc.Content, child.Clone())
	}
	return doc
}

// Contains reports whether n is the root or reachable from it.
func (m *Model) Contains(n *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == m.root {
			return true
		}
	}
	return false
}

// IsValid reports whether r still points into the document.
func (m *Model) IsValid(r Range) bool {
	parent := r.Parent()
	if parent == nil || r.End.Parent != parent || !m.Contains(parent) {
		return false
	}
	return r.Start.Offset >= 0 && r.Start.Offset <= r.End.Offset && r.End.Offset <= parent.MaxOffset()
}

// ContentChangedSince reports whether children of n were inserted or removed
// by a change block committed after version. Offsets into n taken at version
// are only reliable while it reports false.
func (m *Model) ContentChangedSince(n *Node, version uint64) bool {
	return n != nil && n.revision > version
}

// NodeAt resolves a child index path from the root.
func (m *Model) NodeAt(path ...int) (*Node, error) {
	cur := m.root
	for depth, idx := range path {
		if idx < 0 || idx >= len(cur.Content) {
			return nil, fmt.Errorf("path %v: index %d out of range at depth %d", path, idx, depth)
		}
		cur = cur.Content[idx]
	}
	return cur, nil
}

// Change runs fn inside a change block. Everything fn writes is undone if it
// returns an error or panics; a panic is re-raised after rollback. On
// success the registered postfixers run until they stop producing changes.
// Nested calls join the outer block.
func (m *Model) Change(fn func(w *Writer) error) (batch Batch, err error) {
	if m.writer != nil {
		return Batch{}, fn(m.writer)
	}

	w := &Writer{model: m}
	m.writer = w
	defer func() {
		m.writer = nil
		if r := recover(); r != nil {
			w.rollback()
			panic(r)
		}
	}()

	if err := fn(w); err != nil {
		w.rollback()
		return Batch{}, err
	}
	if err := m.postfix(w); err != nil {
		w.rollback()
		return Batch{}, err
	}

	if len(w.changes) > 0 {
		m.version++
		for _, change := range w.changes {
			if change.Type != ChangeAttribute && change.Parent != nil {
				change.Parent.revision = m.version
			}
		}
	}
	return Batch{Changes: w.changes, Version: m.version}, nil
}

// Normalize runs the postfixers as if every element had just been inserted.
func (m *Model) Normalize() (Batch, error) {
	return m.Change(func(w *Writer) error {
		m.root.Walk(func(n *Node) bool {
			if n.IsText() {
				return false
			}
			w.seeds = append(w.seeds, Change{
				Type:   ChangeInsert,
				Parent: n,
				Length: n.MaxOffset(),
				Name:   n.Name(),
			})
			return true
		})
		return nil
	})
}

func (m *Model) postfix(w *Writer) error {
	if len(m.postfixers) == 0 {
		return nil
	}
	pending := append(append([]Change(nil), w.changes...), w.seeds...)
	for pass := 0; len(pending) > 0; pass++ {
		if pass >= m.maxPasses {
			return fmt.Errorf("%w: still changing after %d passes", ErrPostfixDiverged, pass)
		}
		mark := len(w.changes)
		for _, fix := range m.postfixers {
			if err := fix(w, pending); err != nil {
				return fmt.Errorf("postfix pass %d: %w", pass+1, err)
			}
		}
		pending = append([]Change(nil), w.changes[mark:]...)
		m.logger.Debug("Postfix pass finished", zap.Int("pass", pass+1), zap.Int("changes", len(pending)))
	}
	return nil
}
