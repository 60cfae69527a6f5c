package linkit

import "github.com/rgonek/linkit/model"

// CommandState is what the toolbar needs to show a link or unlink button.
type CommandState struct {
	Enabled  bool
	Value    Identity
	HasValue bool
}

// LinkState reports whether a link can be applied at the selection and
// which identity it currently shows.
func (e *Editor) LinkState(sel model.Selection) CommandState {
	var state CommandState
	state.Value, state.HasValue = SelectionIdentity(sel)
	if !e.selectionValid(sel) {
		return state
	}
	for _, r := range sel.Ranges {
		if e.model.Schema().CheckMark(r.Parent(), MarkLink) != nil {
			return state
		}
	}
	state.Enabled = true
	return state
}

// UnlinkState reports whether the link at the selection can be removed.
// Links inside normalized containers belong to the container and cannot be
// removed from their text.
func (e *Editor) UnlinkState(sel model.Selection) CommandState {
	var state CommandState
	state.Value, state.HasValue = SelectionIdentity(sel)
	if !e.selectionValid(sel) || e.inNormalizedContainer(sel) {
		return state
	}
	state.Enabled = state.HasValue
	return state
}

func (e *Editor) inNormalizedContainer(sel model.Selection) bool {
	for _, r := range sel.Ranges {
		if _, _, ok := e.registry.ContainerOf(r.Parent(), e.config.NormalizedTypes...); ok {
			return true
		}
	}
	return false
}
