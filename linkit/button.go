package linkit

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/render"
	"github.com/rgonek/linkit/template"
)

// RequestButtonLink asks the link selector for the target of a button
// element. The element's link-target attribute is exchanged as href; the
// picked values are written back as element attributes.
func (e *Editor) RequestButtonLink(element *model.Node) (*PendingRequest, error) {
	if e.selector == nil {
		return nil, ErrNoSelector
	}
	info, ok := e.registry.Info(element)
	if !ok || info.Type != template.TypeButton {
		return nil, fmt.Errorf("request button link on %v: %w", element, ErrNotButton)
	}
	if !e.model.Contains(element) {
		return nil, fmt.Errorf("request button link: %w", ErrStaleSelection)
	}

	attrs := buttonValues(element)
	data, err := render.HTML(e.model.Root().Content...)
	if err != nil {
		return nil, fmt.Errorf("request button link: %w", err)
	}
	attrs[AttrEditorData] = data

	req := &PendingRequest{ID: uuid.New(), element: element}
	e.logger.Debug("Button link selector requested",
		zap.Stringer("request", req.ID), zap.Ints("path", model.PathOf(element)))
	e.selector(attrs, e.completion(req, e.completeButton))
	return req, nil
}

func (e *Editor) completeButton(req *PendingRequest, values map[string]string) Result {
	if !e.model.Contains(req.element) {
		return e.recovered(OutcomeNoOp, WarningStaleSelection, req.element.Type, ErrStaleSelection)
	}
	id, err := ParseIdentity(values)
	if err != nil {
		return e.recovered(OutcomeNoOp, WarningMalformedIdentity, req.element.Type, err)
	}

	batch, err := e.model.Change(func(w *model.Writer) error {
		if err := w.SetAttribute(req.element, AttrLinkTarget, id.Href); err != nil {
			return err
		}
		for _, key := range slices.Sorted(maps.Keys(id.Attrs)) {
			if err := w.SetAttribute(req.element, key, id.Attrs[key]); err != nil {
				return err
			}
		}
		return nil
	})
	return e.result(batch, err)
}

// buttonValues returns the string attributes of element with link-target
// reported as href.
func buttonValues(element *model.Node) map[string]string {
	values := make(map[string]string, len(element.Attrs)+1)
	for key, value := range element.Attrs {
		if s, ok := value.(string); ok {
			values[key] = s
		}
	}
	if target, ok := values[AttrLinkTarget]; ok {
		delete(values, AttrLinkTarget)
		values[AttrHref] = target
	}
	return values
}
