package parse

import "github.com/rgonek/linkit/model"

// markStack tracks the marks open at the current inline position.
type markStack struct {
	items []model.Mark
}

func newMarkStack() *markStack {
	return &markStack{}
}

func (s *markStack) push(mark model.Mark) {
	s.items = append(s.items, mark.Clone())
}

func (s *markStack) popByType(markType string) bool {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Type != markType {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		return true
	}
	return false
}

// current returns the open marks with at most one mark per type; the
// innermost wins.
func (s *markStack) current() []model.Mark {
	if len(s.items) == 0 {
		return nil
	}
	marks := make([]model.Mark, 0, len(s.items))
	for i, mark := range s.items {
		shadowed := false
		for _, later := range s.items[i+1:] {
			if later.Type == mark.Type {
				shadowed = true
				break
			}
		}
		if !shadowed {
			marks = append(marks, mark.Clone())
		}
	}
	return marks
}

func marksEqual(left, right []model.Mark) bool {
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !left[i].Equal(right[i]) {
			return false
		}
	}
	return true
}

// appendInlineNode appends node, merging it into the previous text run when
// both carry the same marks.
func appendInlineNode(content []*model.Node, node *model.Node) []*model.Node {
	if node == nil {
		return content
	}
	if node.IsText() && node.Text == "" {
		return content
	}
	if len(content) > 0 {
		last := content[len(content)-1]
		if last.IsText() && node.IsText() && marksEqual(last.Marks, node.Marks) {
			last.Text += node.Text
			return content
		}
	}
	return append(content, node)
}
