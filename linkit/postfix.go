package linkit

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/template"
)

// NewButtonPostfixer returns the postfixer that forces a single identity over
// the content of every changed container of the normalized template types.
// The identity of the first text run wins; a container without one gets
// cfg.DefaultHref and no metadata.
func NewButtonPostfixer(registry *template.Registry, cfg Config, logger *zap.Logger) model.Postfixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := func(info template.ElementInfo) bool {
		return cfg.Normalizes(info.Type)
	}

	return func(w *model.Writer, changes []model.Change) error {
		for _, container := range dirtyContainers(registry, changes, normalized) {
			if !w.Model().Contains(container) {
				continue
			}
			err := normalizeContainer(w, container, cfg.DefaultHref)
			if errors.Is(err, model.ErrStructuralViolation) {
				logger.Warn("Container normalization skipped",
					zap.String("element", container.Type), zap.Ints("path", model.PathOf(container)), zap.Error(err))
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// NewPlainTextPostfixer returns the postfixer that strips every mark but
// links from the text of containers configured as plain.
func NewPlainTextPostfixer(registry *template.Registry) model.Postfixer {
	return func(w *model.Writer, changes []model.Change) error {
		for _, container := range dirtyContainers(registry, changes, template.ElementInfo.Plain) {
			if !w.Model().Contains(container) {
				continue
			}
			for _, r := range contentRanges(container) {
				var strip []string
				for _, n := range r.Nodes() {
					for _, m := range n.Marks {
						if m.Type != MarkLink && !slices.Contains(strip, m.Type) {
							strip = append(strip, m.Type)
						}
					}
				}
				for _, markType := range strip {
					if err := w.RemoveMark(r, markType); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
}

// plainRule rejects formatting marks inside plain containers.
func plainRule(registry *template.Registry) model.MarkRule {
	return func(parent *model.Node, markType string) error {
		if markType == MarkLink {
			return nil
		}
		if container, info, ok := registry.Nearest(parent, template.ElementInfo.Plain); ok {
			return &model.StructuralViolationError{
				Parent: container.Type,
				Mark:   markType,
				Reason: fmt.Sprintf("plain %s element only allows links", info.Type),
			}
		}
		return nil
	}
}

func normalizeContainer(w *model.Writer, container *model.Node, defaultHref string) error {
	ranges := contentRanges(container)
	if len(ranges) == 0 {
		return nil
	}
	id, ok := Read(ranges[0].Nodes()[0])
	if !ok {
		id = Identity{Href: defaultHref}
	}
	return Apply(w, ranges, id)
}

// dirtyContainers maps change entries to the matching containers they touch,
// in first-seen order.
func dirtyContainers(registry *template.Registry, changes []model.Change, match func(template.ElementInfo) bool) []*model.Node {
	var out []*model.Node
	seen := make(map[*model.Node]struct{})
	add := func(n *model.Node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	for _, change := range changes {
		if container, _, ok := registry.Nearest(change.Parent, match); ok {
			add(container)
		}
		if change.Node == nil || change.Type == model.ChangeRemove {
			continue
		}
		change.Node.Walk(func(n *model.Node) bool {
			if info, ok := registry.Info(n); ok && match(info) {
				add(n)
			}
			return !n.IsText()
		})
	}
	return out
}

// contentRanges returns the maximal runs of text under container in
// document order.
func contentRanges(container *model.Node) []model.Range {
	var ranges []model.Range
	var collect func(parent *model.Node)
	collect = func(parent *model.Node) {
		runStart := -1
		offset := 0
		flush := func(end int) {
			if runStart >= 0 && end > runStart {
				ranges = append(ranges, model.Range{
					Start: model.Position{Parent: parent, Offset: runStart},
					End:   model.Position{Parent: parent, Offset: end},
				})
			}
			runStart = -1
		}
		for _, child := range parent.Content {
			if child.IsText() {
				if runStart < 0 {
					runStart = offset
				}
			} else {
				flush(offset)
				collect(child)
			}
			offset += child.Size()
		}
		flush(offset)
	}
	collect(container)
	return ranges
}
