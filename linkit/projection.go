package linkit

import (
	"fmt"

	"github.com/rgonek/linkit/model"
)

// Apply writes id over every range. It must run inside a change block so a
// failure on any range rolls back the ones before it.
func Apply(w *model.Writer, ranges []model.Range, id Identity) error {
	mark := id.Mark()
	for i, r := range ranges {
		if err := w.SetMark(r, mark); err != nil {
			return fmt.Errorf("apply link to range %d: %w", i+1, err)
		}
	}
	return nil
}

// Remove clears the identity, href and metadata alike, from every range.
func Remove(w *model.Writer, ranges []model.Range) error {
	for i, r := range ranges {
		if err := w.RemoveMark(r, MarkLink); err != nil {
			return fmt.Errorf("remove link from range %d: %w", i+1, err)
		}
	}
	return nil
}
