package linkit

import "github.com/rgonek/linkit/model"

// FindLinkRange returns the run around pos whose nodes link to href.
// Only the href is compared; nodes with other metadata still extend the run.
func FindLinkRange(pos model.Position, href string) model.Range {
	start := pos.Offset
	for {
		n := model.Position{Parent: pos.Parent, Offset: start}.NodeBefore()
		if n == nil || !hasHref(n, href) {
			break
		}
		start = n.StartOffset()
	}

	end := pos.Offset
	for {
		n := model.Position{Parent: pos.Parent, Offset: end}.NodeAfter()
		if n == nil || !hasHref(n, href) {
			break
		}
		end = n.EndOffset()
	}

	return model.Range{
		Start: model.Position{Parent: pos.Parent, Offset: start},
		End:   model.Position{Parent: pos.Parent, Offset: end},
	}
}

// SelectionIdentity returns the identity reported by the selection.
func SelectionIdentity(sel model.Selection) (Identity, bool) {
	n := sel.AnchorNode()
	if n == nil {
		return Identity{}, false
	}
	return Read(n)
}

// ResolveRanges returns the ranges a link operation on sel acts on. A caret
// resolves to the link run around it and reports false when it is not on a
// link. An expanded selection is used as is.
func ResolveRanges(sel model.Selection) ([]model.Range, bool) {
	if sel.IsCollapsed() {
		id, ok := SelectionIdentity(sel)
		if !ok {
			return nil, false
		}
		pos, _ := sel.FirstPosition()
		return []model.Range{FindLinkRange(pos, id.Href)}, true
	}

	var ranges []model.Range
	for _, r := range sel.Ranges {
		if !r.IsCollapsed() {
			ranges = append(ranges, r)
		}
	}
	return ranges, len(ranges) > 0
}
