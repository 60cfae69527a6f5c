package linkit

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/template"
)

func TestCheckReportsEveryViolation(t *testing.T) {
	cfg := Config{Templates: []template.ElementInfo{
		{Name: "button", Type: template.TypeButton},
		{Name: "card", Type: "card", Config: map[string]any{"plain": true}},
	}}
	e := newTestEditor(t, `{"version":1,"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"button","content":[{"type":"text","text":"A"}]}]},
		{"type":"paragraph","content":[{"type":"text","text":"twice","marks":[
			{"type":"link","attrs":{"href":"a"}},{"type":"link","attrs":{"href":"b"}}]}]},
		{"type":"card","content":[{"type":"paragraph","content":[{"type":"text","text":"b","marks":[{"type":"strong"}]}]}]},
		{"type":"paragraph","content":[{"type":"image","marks":[{"type":"link","attrs":{"href":"c"}}]}]}]}`, cfg)

	errs := multierr.Errors(e.Check())
	require.Len(t, errs, 4)

	want := []struct {
		rule string
		path []int
	}{
		{RuleUniformButton, []int{0, 0, 0}},
		{RuleWholeIdentity, []int{1, 0}},
		{RulePlainText, []int{2, 0, 0}},
		{RuleInlineIdentity, []int{3, 0}},
	}
	for i, w := range want {
		var violation *InvariantError
		require.True(t, errors.As(errs[i], &violation), "error %d: %v", i, errs[i])
		assert.Equal(t, w.rule, violation.Rule)
		assert.Equal(t, w.path, violation.Path)
	}
}

func TestCheckFlagsNonStringMetadata(t *testing.T) {
	e := newTestEditor(t, `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"a","n":1}}]}]}]}`, Config{})

	err := e.Check()
	var violation *InvariantError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, RuleWholeIdentity, violation.Rule)
	assert.Contains(t, violation.Error(), `"n"`)
}

func TestCheckFlagsLinksInDisallowedContainers(t *testing.T) {
	e := newTestEditor(t, `{"version":1,"type":"doc","content":[
		{"type":"heading","content":[{"type":"text","text":"Title","marks":[{"type":"link","attrs":{"href":"x"}}]}]},
		{"type":"paragraph","content":[{"type":"text","text":"fine","marks":[{"type":"link","attrs":{"href":"x"}}]}]}]}`,
		Config{DisallowLinkIn: []string{"heading"}})

	errs := multierr.Errors(e.Check())
	require.Len(t, errs, 1)
	var violation *InvariantError
	require.True(t, errors.As(errs[0], &violation))
	assert.Equal(t, RuleDisallowedLink, violation.Rule)
	assert.Equal(t, []int{0, 0}, violation.Path)

	h := nodeAt(t, e, 0)
	_, err := e.Change(func(w *model.Writer) error {
		return w.Insert(model.Position{Parent: h, Offset: 0}, model.NewText("L", Identity{Href: "y"}.Mark()))
	})
	require.ErrorIs(t, err, model.ErrStructuralViolation)
	assert.Len(t, h.Content, 1)
}

func TestCheckIgnoresContainersThatAreNotNormalized(t *testing.T) {
	e := newTestEditor(t, `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"button","content":[{"type":"text","text":"A"},{"type":"text","text":"B","marks":[{"type":"link","attrs":{"href":"b"}}]}]}]}]}`,
		Config{NormalizedTypes: []string{"tab"}})
	assert.NoError(t, e.Check())
}

// Random link edits over distinct hrefs keep every text run holding at most
// one whole identity, and adjacent text with the same href equal.
func TestRandomEditsKeepIdentitiesWhole(t *testing.T) {
	e := newTestEditor(t, `{"version":1,"type":"doc","content":[
		{"type":"paragraph","content":[{"type":"text","text":"the quick brown fox"}]},
		{"type":"paragraph","content":[{"type":"text","text":"jumps"},{"type":"hardBreak"},{"type":"text","text":"over the lazy dog"}]}]}`, Config{})
	paragraphs := []*model.Node{nodeAt(t, e, 0), nodeAt(t, e, 1)}
	ids := []Identity{
		{Href: "a", Attrs: map[string]string{"k": "1"}},
		{Href: "b"},
		{Href: "c", Attrs: map[string]string{"k": "2", "rel": "nofollow"}},
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		p := paragraphs[rng.Intn(len(paragraphs))]
		size := p.MaxOffset()
		start := rng.Intn(size + 1)
		end := start
		if rng.Intn(3) > 0 {
			end = start + rng.Intn(size-start+1)
		}
		sel := span(p, start, end)

		switch rng.Intn(3) {
		case 0, 1:
			e.Commit(sel, ids[rng.Intn(len(ids))])
		default:
			e.RemoveIdentity(sel)
		}

		require.NoError(t, e.Check(), "after step %d", i)
		for _, p := range paragraphs {
			for j := 1; j < len(p.Content); j++ {
				prev, okPrev := Read(p.Content[j-1])
				cur, okCur := Read(p.Content[j])
				if okPrev && okCur && prev.Href == cur.Href {
					assert.True(t, prev.Equal(cur), "step %d: %s next to %s", i, prev, cur)
				}
			}
		}
	}
}
