package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloDoc = `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello world"}]}]}`

func newTestModel(t *testing.T, input string, opts ...Option) *Model {
	t.Helper()
	var doc Doc
	require.NoError(t, json.Unmarshal([]byte(input), &doc))
	return New(doc, opts...)
}

func texts(n *Node) []string {
	var out []string
	for _, child := range n.Content {
		out = append(out, child.Text)
	}
	return out
}

func paragraph(t *testing.T, m *Model) *Node {
	t.Helper()
	p, err := m.NodeAt(0)
	require.NoError(t, err)
	return p
}

func TestSetMarkSplitsOnlyWhatChanges(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)

	batch, err := m.Change(func(w *Writer) error {
		return w.SetMark(Range{Start: Position{p, 0}, End: Position{p, 5}}, Mark{Type: "strong"})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", " world"}, texts(p))
	assert.True(t, p.Content[0].HasMark("strong"))
	assert.False(t, p.Content[1].HasMark("strong"))
	require.Len(t, batch.Changes, 1)
	assert.Equal(t, ChangeAttribute, batch.Changes[0].Type)
	assert.Equal(t, "strong", batch.Changes[0].Key)
	assert.Equal(t, 5, batch.Changes[0].Length)
	assert.Equal(t, uint64(1), m.Version())
}

func TestSetMarkTwiceRecordsNothing(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)
	r := Range{Start: Position{p, 0}, End: Position{p, 5}}
	mark := Mark{Type: "link", Attrs: map[string]any{"href": "x"}}

	_, err := m.Change(func(w *Writer) error { return w.SetMark(r, mark) })
	require.NoError(t, err)

	batch, err := m.Change(func(w *Writer) error { return w.SetMark(r, mark) })
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
	assert.Equal(t, uint64(1), m.Version())
	assert.Equal(t, []string{"hello", " world"}, texts(p))
}

func TestSetMarkCountsRunes(t *testing.T) {
	m := newTestModel(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"héllo"}]}]}`)
	p := paragraph(t, m)
	assert.Equal(t, 5, p.MaxOffset())

	_, err := m.Change(func(w *Writer) error {
		return w.SetMark(Range{Start: Position{p, 1}, End: Position{p, 2}}, Mark{Type: "em"})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"h", "é", "llo"}, texts(p))
	assert.True(t, p.Content[1].HasMark("em"))
}

func TestChangeRollsBackOnError(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)
	original := p.Content[0]
	failure := errors.New("boom")

	batch, err := m.Change(func(w *Writer) error {
		require.NoError(t, w.SetMark(Range{Start: Position{p, 2}, End: Position{p, 4}}, Mark{Type: "strong"}))
		require.NoError(t, w.Insert(Position{p, 0}, NewText(">")))
		return failure
	})
	require.ErrorIs(t, err, failure)
	assert.True(t, batch.IsEmpty())

	require.Len(t, p.Content, 1)
	assert.Same(t, original, p.Content[0])
	assert.Equal(t, "hello world", original.Text)
	assert.Empty(t, original.Marks)
	assert.Equal(t, uint64(0), m.Version())
}

func TestChangeRollsBackOnPanic(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)

	assert.Panics(t, func() {
		_, _ = m.Change(func(w *Writer) error {
			_ = w.SetMark(RangeIn(p), Mark{Type: "strong"})
			panic("mid-edit")
		})
	})

	require.Len(t, p.Content, 1)
	assert.Empty(t, p.Content[0].Marks)

	// The model stays usable after the panic.
	_, err := m.Change(func(w *Writer) error {
		return w.SetMark(RangeIn(p), Mark{Type: "em"})
	})
	require.NoError(t, err)
	assert.True(t, p.Content[0].HasMark("em"))
}

func TestNestedChangeJoinsOuterBlock(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)

	batch, err := m.Change(func(w *Writer) error {
		if err := w.SetMark(Range{Start: Position{p, 0}, End: Position{p, 5}}, Mark{Type: "strong"}); err != nil {
			return err
		}
		inner, err := m.Change(func(w *Writer) error {
			return w.SetMark(Range{Start: Position{p, 6}, End: Position{p, 11}}, Mark{Type: "em"})
		})
		assert.True(t, inner.IsEmpty())
		return err
	})
	require.NoError(t, err)
	assert.Len(t, batch.Changes, 2)
	assert.Equal(t, uint64(1), m.Version())
}

func TestInsertAndRemove(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)

	batch, err := m.Change(func(w *Writer) error {
		return w.Insert(Position{p, 5}, NewText("!"))
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "!", " world"}, texts(p))
	require.Len(t, batch.Changes, 1)
	assert.Equal(t, ChangeInsert, batch.Changes[0].Type)
	assert.Equal(t, NameText, batch.Changes[0].Name)
	assert.Same(t, p, batch.Changes[0].Parent)

	removed := p.Content[1]
	batch, err = m.Change(func(w *Writer) error {
		return w.Remove(Range{Start: Position{p, 5}, End: Position{p, 6}})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", " world"}, texts(p))
	require.Len(t, batch.Changes, 1)
	assert.Equal(t, ChangeRemove, batch.Changes[0].Type)
	assert.Nil(t, removed.Parent())
	assert.False(t, m.Contains(removed))
}

func TestInsertRejectsAttachedNodes(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)

	_, err := m.Change(func(w *Writer) error {
		return w.Insert(Position{p, 0}, p.Content[0])
	})
	require.Error(t, err)
	assert.Equal(t, []string{"hello world"}, texts(p))
}

func TestSetMarkRejectsElementsInRange(t *testing.T) {
	m := newTestModel(t, `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"ab"},
		{"type":"button","content":[{"type":"text","text":"c"}]},
		{"type":"text","text":"d"}]}]}`)
	p := paragraph(t, m)

	_, err := m.Change(func(w *Writer) error {
		return w.SetMark(RangeIn(p), Mark{Type: "strong"})
	})
	require.ErrorIs(t, err, ErrStructuralViolation)

	var violation *StructuralViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "paragraph", violation.Parent)
	assert.Len(t, p.Content, 3)
	assert.Empty(t, p.Content[0].Marks)
}

func TestSchemaDisallowsMarkInsideElement(t *testing.T) {
	schema := NewSchema()
	schema.Disallow("link", "heading")
	m := newTestModel(t, `{"type":"doc","content":[{"type":"heading","content":[{"type":"text","text":"Title"}]}]}`, WithSchema(schema))
	h := paragraph(t, m)

	_, err := m.Change(func(w *Writer) error {
		return w.SetMark(RangeIn(h), Mark{Type: "link", Attrs: map[string]any{"href": "x"}})
	})
	require.ErrorIs(t, err, ErrStructuralViolation)
	assert.Empty(t, h.Content[0].Marks)

	_, err = m.Change(func(w *Writer) error {
		return w.SetMark(RangeIn(h), Mark{Type: "strong"})
	})
	require.NoError(t, err)
}

func TestInsertChecksMarksAgainstSchema(t *testing.T) {
	schema := NewSchema()
	schema.Disallow("link", "heading")
	m := newTestModel(t, `{"type":"doc","content":[{"type":"heading","content":[{"type":"text","text":"Title"}]}]}`, WithSchema(schema))
	h := paragraph(t, m)
	version := m.Version()

	_, err := m.Change(func(w *Writer) error {
		return w.Insert(Position{h, 0}, NewText("L", Mark{Type: "link", Attrs: map[string]any{"href": "x"}}))
	})
	require.ErrorIs(t, err, ErrStructuralViolation)
	assert.Equal(t, []string{"Title"}, texts(h))
	assert.Equal(t, version, m.Version())

	// Nested text is checked against its own parent.
	_, err = m.Change(func(w *Writer) error {
		return w.Insert(Position{m.Root(), 1}, NewElement("heading", nil,
			NewText("a"), NewText("b", Mark{Type: "link", Attrs: map[string]any{"href": "x"}})))
	})
	require.ErrorIs(t, err, ErrStructuralViolation)
	assert.Len(t, m.Root().Content, 1)

	_, err = m.Change(func(w *Writer) error {
		return w.Insert(Position{h, 5}, NewText("!", Mark{Type: "strong"}))
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "!"}, texts(h))
}

func TestContentChangedSince(t *testing.T) {
	m := newTestModel(t, `{"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"text","text":"one"}]},
		{"type":"paragraph","content":[{"type":"text","text":"two"}]}]}`)
	first, second := paragraph(t, m), m.Root().Content[1]
	version := m.Version()

	_, err := m.Change(func(w *Writer) error {
		return w.SetMark(RangeIn(first), Mark{Type: "strong"})
	})
	require.NoError(t, err)
	assert.False(t, m.ContentChangedSince(first, version), "marks keep offsets")

	_, err = m.Change(func(w *Writer) error {
		return w.Insert(Position{second, 0}, NewText(">"))
	})
	require.NoError(t, err)
	assert.True(t, m.ContentChangedSince(second, version))
	assert.False(t, m.ContentChangedSince(first, version))
	assert.False(t, m.ContentChangedSince(second, m.Version()))

	// A rolled back block stamps nothing.
	version = m.Version()
	_, err = m.Change(func(w *Writer) error {
		if err := w.Remove(RangeIn(first)); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, m.ContentChangedSince(first, version))
	assert.False(t, m.ContentChangedSince(nil, 0))
}

func TestSchemaRejectsTextAtRoot(t *testing.T) {
	err := NewSchema().CheckMark(&Node{Type: TypeDoc}, "strong")
	require.ErrorIs(t, err, ErrStructuralViolation)

	require.ErrorIs(t, NewSchema().CheckMark(nil, "strong"), ErrDetached)
}

func TestAttributesRecordOnlyRealChanges(t *testing.T) {
	m := newTestModel(t, `{"type":"doc","content":[{"type":"button","attrs":{"link-target":"#"}}]}`)
	button := paragraph(t, m)

	batch, err := m.Change(func(w *Writer) error {
		return w.SetAttribute(button, "link-target", "#")
	})
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())

	batch, err = m.Change(func(w *Writer) error {
		return w.SetAttribute(button, "link-target", "https://example.com")
	})
	require.NoError(t, err)
	require.Len(t, batch.Changes, 1)
	assert.Same(t, button, batch.Changes[0].Node)
	assert.Equal(t, "link-target", batch.Changes[0].Key)
	assert.Equal(t, "https://example.com", button.GetStringAttr("link-target", ""))

	batch, err = m.Change(func(w *Writer) error {
		return w.RemoveAttribute(button, "missing")
	})
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestPostfixersSeeChangesAndConverge(t *testing.T) {
	m := newTestModel(t, helloDoc)
	p := paragraph(t, m)

	var calls [][]Change
	m.RegisterPostfixer(func(w *Writer, changes []Change) error {
		calls = append(calls, changes)
		// Mirror every strong mark as em; once done this records nothing.
		for _, change := range changes {
			if change.Key != "strong" {
				continue
			}
			r := Range{Start: Position{change.Parent, change.Offset}, End: Position{change.Parent, change.Offset + change.Length}}
			if err := w.SetMark(r, Mark{Type: "em"}); err != nil {
				return err
			}
		}
		return nil
	})

	batch, err := m.Change(func(w *Writer) error {
		return w.SetMark(Range{Start: Position{p, 0}, End: Position{p, 5}}, Mark{Type: "strong"})
	})
	require.NoError(t, err)
	assert.Len(t, batch.Changes, 2)
	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 1)
	assert.Len(t, calls[1], 1)
	assert.Equal(t, "em", calls[1][0].Key)
	assert.True(t, p.Content[0].HasMark("em"))

	calls = nil
	batch, err = m.Change(func(*Writer) error { return nil })
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
	assert.Empty(t, calls)
}

func TestDivergingPostfixerRollsBack(t *testing.T) {
	m := newTestModel(t, helloDoc, WithMaxPostfixPasses(3))
	p := paragraph(t, m)

	m.RegisterPostfixer(func(w *Writer, _ []Change) error {
		r := RangeIn(p)
		if p.Content[0].HasMark("strong") {
			return w.RemoveMark(r, "strong")
		}
		return w.SetMark(r, Mark{Type: "strong"})
	})

	_, err := m.Change(func(w *Writer) error {
		return w.SetMark(RangeIn(p), Mark{Type: "em"})
	})
	require.ErrorIs(t, err, ErrPostfixDiverged)
	require.Len(t, p.Content, 1)
	assert.Empty(t, p.Content[0].Marks)
	assert.Equal(t, uint64(0), m.Version())
}

func TestNormalizeSeedsEveryElement(t *testing.T) {
	m := newTestModel(t, `{"type":"doc","content":[{"type":"paragraph"},{"type":"blockquote","content":[{"type":"paragraph"}]}]}`)

	var seen []string
	m.RegisterPostfixer(func(_ *Writer, changes []Change) error {
		for _, change := range changes {
			seen = append(seen, change.Parent.Type)
		}
		return nil
	})

	batch, err := m.Normalize()
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
	assert.Equal(t, []string{"doc", "paragraph", "blockquote", "paragraph"}, seen)
}

func TestDocIsADeepCopy(t *testing.T) {
	m := newTestModel(t, helloDoc)
	doc := m.Doc()
	doc.Content[0].Content[0].Text = "changed"

	assert.Equal(t, "hello world", paragraph(t, m).Content[0].Text)

	out, err := json.Marshal(m.Doc())
	require.NoError(t, err)
	assert.JSONEq(t, helloDoc, string(out))
}
