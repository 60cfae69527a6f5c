package linkit

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/template"
)

// Editor wires the model, the template registry, and the postfixers
// together. It is the entry point for the UI layer and the link selector
// callback. An Editor is not safe for concurrent use.
type Editor struct {
	config   Config
	model    *model.Model
	registry *template.Registry
	selector LinkSelector
	logger   *zap.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLinkSelector sets the external link picker.
func WithLinkSelector(selector LinkSelector) Option {
	return func(e *Editor) {
		e.selector = selector
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRegistry overrides the registry built from Config.Templates.
func WithRegistry(registry *template.Registry) Option {
	return func(e *Editor) {
		e.registry = registry
	}
}

// New creates an Editor over a copy of doc.
func New(doc model.Doc, cfg Config, opts ...Option) (*Editor, error) {
	cfg = cfg.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Editor{config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		registry, err := cfg.Registry()
		if err != nil {
			return nil, fmt.Errorf("invalid templates: %w", err)
		}
		e.registry = registry
	}

	schema := model.NewSchema()
	schema.Disallow(MarkLink, cfg.DisallowLinkIn...)
	schema.AddRule(plainRule(e.registry))

	e.model = model.New(doc,
		model.WithSchema(schema),
		model.WithMaxPostfixPasses(cfg.MaxPostfixPasses),
		model.WithLogger(e.logger),
	)
	e.model.RegisterPostfixer(NewButtonPostfixer(e.registry, cfg, e.logger))
	e.model.RegisterPostfixer(NewPlainTextPostfixer(e.registry))
	return e, nil
}

// Model returns the underlying document model.
func (e *Editor) Model() *model.Model {
	return e.model
}

// Registry returns the template registry.
func (e *Editor) Registry() *template.Registry {
	return e.registry
}

// Config returns a copy of the active configuration.
func (e *Editor) Config() Config {
	return e.config.clone()
}

// Doc returns a deep copy of the current document.
func (e *Editor) Doc() model.Doc {
	return e.model.Doc()
}

// Change runs an edit inside a change block followed by postfixing.
func (e *Editor) Change(fn func(w *model.Writer) error) (model.Batch, error) {
	return e.model.Change(fn)
}

// Normalize postfixes the whole document. It only fails when the postfixers
// do not converge.
func (e *Editor) Normalize() (model.Batch, error) {
	batch, err := e.model.Normalize()
	if err != nil {
		return model.Batch{}, fmt.Errorf("normalize document: %w", err)
	}
	return batch, nil
}

// ResolveIdentity returns the identity at the selection.
func (e *Editor) ResolveIdentity(sel model.Selection) (Identity, bool) {
	return SelectionIdentity(sel)
}

// CommitIdentity applies link selector values to the selection.
func (e *Editor) CommitIdentity(sel model.Selection, values map[string]string) Result {
	id, err := ParseIdentity(values)
	if err != nil {
		return e.recovered(OutcomeNoOp, WarningMalformedIdentity, "", err)
	}
	return e.Commit(sel, id)
}

// Commit applies id to the ranges the selection resolves to. When the
// postfixers put the previous identity back, as on a partial apply inside a
// button, the result is a noop even though the batch is not empty.
func (e *Editor) Commit(sel model.Selection, id Identity) Result {
	if parent, ok := crossesParents(sel); ok {
		return e.recovered(OutcomeDisabled, WarningStructuralViolation, parent,
			fmt.Errorf("%w: range crosses a container boundary", model.ErrStructuralViolation))
	}
	if !e.selectionValid(sel) {
		return e.recovered(OutcomeNoOp, WarningStaleSelection, "", ErrStaleSelection)
	}
	if !e.LinkState(sel).Enabled {
		return e.recovered(OutcomeDisabled, WarningStructuralViolation, sel.Ranges[0].Parent().Type,
			fmt.Errorf("%w: links are not allowed here", model.ErrStructuralViolation))
	}
	ranges, ok := ResolveRanges(sel)
	if !ok {
		return e.recovered(OutcomeNoOp, WarningNoOp, "", fmt.Errorf("%w: selection is not on a link", ErrNoOp))
	}

	batch, err := e.model.Change(func(w *model.Writer) error {
		return Apply(w, ranges, id)
	})
	result := e.result(batch, err)
	if result.Outcome == OutcomeApplied && !carries(ranges, id) {
		result = e.recovered(OutcomeNoOp, WarningNoOp, "",
			fmt.Errorf("%w: normalization kept the previous link", ErrNoOp))
		result.Batch = batch
	}
	return result
}

// RemoveIdentity clears the identity from the ranges the selection resolves to.
func (e *Editor) RemoveIdentity(sel model.Selection) Result {
	if parent, ok := crossesParents(sel); ok {
		return e.recovered(OutcomeDisabled, WarningStructuralViolation, parent,
			fmt.Errorf("%w: range crosses a container boundary", model.ErrStructuralViolation))
	}
	if !e.selectionValid(sel) {
		return e.recovered(OutcomeNoOp, WarningStaleSelection, "", ErrStaleSelection)
	}
	if !e.UnlinkState(sel).Enabled {
		return e.recovered(OutcomeDisabled, WarningNoOp, sel.Ranges[0].Parent().Type,
			fmt.Errorf("%w: unlink is not available here", ErrNoOp))
	}
	ranges, ok := ResolveRanges(sel)
	if !ok {
		return e.recovered(OutcomeNoOp, WarningNoOp, "", fmt.Errorf("%w: selection is not on a link", ErrNoOp))
	}

	batch, err := e.model.Change(func(w *model.Writer) error {
		return Remove(w, ranges)
	})
	return e.result(batch, err)
}

func (e *Editor) selectionValid(sel model.Selection) bool {
	if len(sel.Ranges) == 0 {
		return false
	}
	for _, r := range sel.Ranges {
		if !e.model.IsValid(r) {
			return false
		}
	}
	return true
}

// crossesParents reports the start parent type of the first range whose ends
// sit in different containers.
func crossesParents(sel model.Selection) (string, bool) {
	for _, r := range sel.Ranges {
		if r.Start.Parent != nil && r.End.Parent != nil && r.Start.Parent != r.End.Parent {
			return r.Start.Parent.Type, true
		}
	}
	return "", false
}

// carries reports whether some text in ranges holds id.
func carries(ranges []model.Range, id Identity) bool {
	for _, r := range ranges {
		for _, n := range r.Nodes() {
			if got, ok := Read(n); ok && id.Equal(got) {
				return true
			}
		}
	}
	return false
}

func (e *Editor) result(batch model.Batch, err error) Result {
	switch {
	case err == nil:
		return Result{Outcome: OutcomeApplied, Batch: batch}
	case errors.Is(err, model.ErrStructuralViolation):
		var violation *model.StructuralViolationError
		nodeType := ""
		if errors.As(err, &violation) {
			nodeType = violation.Parent
		}
		return e.recovered(OutcomeDisabled, WarningStructuralViolation, nodeType, err)
	case errors.Is(err, model.ErrDetached):
		return e.recovered(OutcomeNoOp, WarningStaleSelection, "", err)
	case errors.Is(err, model.ErrPostfixDiverged):
		e.logger.Error("Postfixers did not converge, change rolled back", zap.Error(err))
		return Result{
			Outcome:  OutcomeNoOp,
			Warnings: []Warning{{Type: WarningPostfixDiverged, Message: err.Error()}},
		}
	default:
		e.logger.Error("Change rolled back", zap.Error(err))
		return Result{
			Outcome:  OutcomeNoOp,
			Warnings: []Warning{{Type: WarningNoOp, Message: err.Error()}},
		}
	}
}

func (e *Editor) recovered(outcome Outcome, warnType WarningType, nodeType string, err error) Result {
	e.logger.Info("Request not applied",
		zap.String("outcome", string(outcome)), zap.String("reason", string(warnType)), zap.Error(err))
	return Result{
		Outcome: outcome,
		Warnings: []Warning{{
			Type:     warnType,
			NodeType: nodeType,
			Message:  err.Error(),
		}},
	}
}
