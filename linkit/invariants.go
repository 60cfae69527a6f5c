package linkit

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/template"
)

// InvariantError describes one node breaking a link invariant.
type InvariantError struct {
	Rule    string
	Path    []int
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s at %v: %s", e.Rule, e.Path, e.Message)
}

const (
	RuleWholeIdentity  = "whole-identity"
	RuleUniformButton  = "uniform-button"
	RulePlainText      = "plain-text"
	RuleInlineIdentity = "inline-identity"
	RuleDisallowedLink = "disallowed-link"
)

// CheckInvariants validates the link invariants over the whole document and
// returns every violation. Containers of normalizedTypes must carry a single
// identity on all their text.
func CheckInvariants(m *model.Model, registry *template.Registry, normalizedTypes ...string) error {
	var err error
	m.Root().Walk(func(n *model.Node) bool {
		if n == m.Root() {
			return true
		}
		if n.IsText() {
			err = multierr.Append(err, checkText(n, m.Schema(), registry))
			return false
		}
		if len(n.Marks) > 0 {
			err = multierr.Append(err, &InvariantError{
				Rule:    RuleInlineIdentity,
				Path:    model.PathOf(n),
				Message: fmt.Sprintf("element %q carries marks", n.Type),
			})
		}
		if info, ok := registry.Info(n); ok && slices.Contains(normalizedTypes, info.Type) {
			err = multierr.Append(err, checkUniform(n))
		}
		return true
	})
	return err
}

// Check validates the editor document with its configured normalized types.
func (e *Editor) Check() error {
	return CheckInvariants(e.model, e.registry, e.config.NormalizedTypes...)
}

func checkText(n *model.Node, schema *model.Schema, registry *template.Registry) error {
	var err error
	links := 0
	for _, m := range n.Marks {
		if m.Type != MarkLink {
			continue
		}
		links++
		if links == 1 {
			if violation := schema.CheckMark(n.Parent(), MarkLink); violation != nil {
				err = multierr.Append(err, &InvariantError{
					Rule:    RuleDisallowedLink,
					Path:    model.PathOf(n),
					Message: violation.Error(),
				})
			}
		}
		if _, ok := m.Attrs[AttrHref].(string); !ok {
			err = multierr.Append(err, &InvariantError{
				Rule:    RuleWholeIdentity,
				Path:    model.PathOf(n),
				Message: "link without a string href",
			})
		}
		for key, value := range m.Attrs {
			if _, ok := value.(string); !ok {
				err = multierr.Append(err, &InvariantError{
					Rule:    RuleWholeIdentity,
					Path:    model.PathOf(n),
					Message: fmt.Sprintf("link attribute %q is not a string", key),
				})
			}
		}
	}
	if links > 1 {
		err = multierr.Append(err, &InvariantError{
			Rule:    RuleWholeIdentity,
			Path:    model.PathOf(n),
			Message: fmt.Sprintf("text carries %d link marks", links),
		})
	}

	if container, _, ok := registry.Nearest(n.Parent(), template.ElementInfo.Plain); ok {
		for _, m := range n.Marks {
			if m.Type != MarkLink {
				err = multierr.Append(err, &InvariantError{
					Rule:    RulePlainText,
					Path:    model.PathOf(n),
					Message: fmt.Sprintf("mark %q inside plain %q", m.Type, container.Type),
				})
			}
		}
	}
	return err
}

func checkUniform(container *model.Node) error {
	var first *Identity
	for _, r := range contentRanges(container) {
		for _, n := range r.Nodes() {
			id, ok := Read(n)
			if !ok {
				return &InvariantError{
					Rule:    RuleUniformButton,
					Path:    model.PathOf(n),
					Message: fmt.Sprintf("text inside %q has no link", container.Type),
				}
			}
			if first == nil {
				first = &id
				continue
			}
			if !first.Equal(id) {
				return &InvariantError{
					Rule:    RuleUniformButton,
					Path:    model.PathOf(n),
					Message: fmt.Sprintf("link %s differs from %s inside %q", id, *first, container.Type),
				}
			}
		}
	}
	return nil
}
