package linkit

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/render"
)

// LinkSelector opens the external link picker. attrs holds the current
// identity values plus request context; onComplete must be called with the
// picked values, at most once. It may be called after the selector returns.
type LinkSelector func(attrs map[string]string, onComplete func(values map[string]string))

// PendingRequest tracks one link selector interaction.
type PendingRequest struct {
	ID uuid.UUID

	selection model.Selection
	version   uint64
	element   *model.Node
	completed bool
	result    Result
}

// Done reports whether the selector completed the request.
func (r *PendingRequest) Done() bool {
	return r.completed
}

// Result returns the outcome of the completion. Before completion it
// reports OutcomePending and false.
func (r *PendingRequest) Result() (Result, bool) {
	if !r.completed {
		return Result{Outcome: OutcomePending}, false
	}
	return r.result, true
}

// RequestLink asks the link selector for an identity for sel. The selection
// is stored as is and applied when the selector completes. A completion
// after content was inserted into or removed from a range container is
// reported as a stale selection.
func (e *Editor) RequestLink(sel model.Selection) (*PendingRequest, error) {
	if e.selector == nil {
		return nil, ErrNoSelector
	}
	if parent, ok := crossesParents(sel); ok {
		return nil, &model.StructuralViolationError{
			Parent: parent,
			Mark:   MarkLink,
			Reason: "range crosses a container boundary",
		}
	}
	pos, ok := sel.FirstPosition()
	if !ok || !e.selectionValid(sel) {
		return nil, fmt.Errorf("request link: %w", ErrStaleSelection)
	}
	if !e.LinkState(sel).Enabled {
		return nil, &model.StructuralViolationError{
			Parent: pos.Parent.Type,
			Mark:   MarkLink,
			Reason: "links are not allowed here",
		}
	}

	attrs := map[string]string{}
	if id, ok := SelectionIdentity(sel); ok {
		attrs = id.Values()
	}
	data, filter, err := e.snapshot(pos.Parent)
	if err != nil {
		return nil, fmt.Errorf("request link: %w", err)
	}
	if filter != "" {
		attrs[AttrLinksFilter] = filter
	}
	attrs[AttrEditorData] = data

	req := &PendingRequest{ID: uuid.New(), selection: cloneSelection(sel), version: e.model.Version()}
	e.logger.Debug("Link selector requested", zap.Stringer("request", req.ID), zap.Stringer("position", pos))
	e.selector(attrs, e.completion(req, e.completeLink))
	return req, nil
}

func (e *Editor) completeLink(req *PendingRequest, values map[string]string) Result {
	if !e.selectionValid(req.selection) {
		return e.recovered(OutcomeNoOp, WarningStaleSelection, "", ErrStaleSelection)
	}
	for _, r := range req.selection.Ranges {
		if e.model.ContentChangedSince(r.Parent(), req.version) {
			return e.recovered(OutcomeNoOp, WarningStaleSelection, r.Parent().Type,
				fmt.Errorf("%w: content moved since the request", ErrStaleSelection))
		}
	}
	return e.CommitIdentity(req.selection, values)
}

// completion wraps complete so that only the first call has an effect.
func (e *Editor) completion(req *PendingRequest, complete func(*PendingRequest, map[string]string) Result) func(map[string]string) {
	return func(values map[string]string) {
		if req.completed {
			e.logger.Warn("Duplicate link selector completion ignored", zap.Stringer("request", req.ID))
			req.result.Warnings = append(req.result.Warnings, Warning{
				Type:    WarningDuplicateCompletion,
				Message: fmt.Sprintf("request %s already completed", req.ID),
			})
			return
		}
		req.completed = true
		req.result = complete(req, values)
		e.logger.Debug("Link selector completed",
			zap.Stringer("request", req.ID), zap.String("outcome", string(req.result.Outcome)))
	}
}

// snapshot renders the document data sent with a request from parent. When
// parent has a links filter only the matching elements are rendered, scoped
// to the closest ancestor carrying the filter parent class and an id.
func (e *Editor) snapshot(parent *model.Node) (string, string, error) {
	root := e.model.Root()
	filter := parent.GetStringAttr(AttrLinksFilter, "")
	if filter == "" {
		data, err := render.HTML(root.Content...)
		return data, "", err
	}

	scope := root
	if parentFilter := parent.GetStringAttr(AttrLinksFilterParent, ""); parentFilter != "" {
		for _, ancestor := range append([]*model.Node{parent}, parent.Ancestors()...) {
			if render.HasClass(ancestor, parentFilter) && ancestor.GetStringAttr("id", "") != "" {
				scope = ancestor
				break
			}
		}
	}
	data, err := render.HTML(render.ElementsWithClass(scope, filter)...)
	return data, filter, err
}

func cloneSelection(sel model.Selection) model.Selection {
	return model.Selection{Ranges: slices.Clone(sel.Ranges)}
}
