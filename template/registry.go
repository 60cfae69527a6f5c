// Package template provides container element metadata: the template type
// each element name maps to and its per-element configuration.
package template

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rgonek/linkit/model"
)

// TypeButton is the template type of button containers.
const TypeButton = "button"

// ElementInfo describes one template element.
type ElementInfo struct {
	Name   string         `json:"name" yaml:"name"`
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Option returns a configuration value.
func (e ElementInfo) Option(key string) (any, bool) {
	value, ok := e.Config[key]
	return value, ok
}

// Plain reports whether the element forbids formatting on its text.
func (e ElementInfo) Plain() bool {
	switch value := e.Config["plain"].(type) {
	case bool:
		return value
	case string:
		return strings.EqualFold(value, "true")
	default:
		return false
	}
}

// Registry maps element names to their metadata.
type Registry struct {
	byName map[string]ElementInfo
}

// NewRegistry returns an empty registry. Fill it with Register.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]ElementInfo)}
}

// Register adds an element.
func (r *Registry) Register(info ElementInfo) error {
	if strings.TrimSpace(info.Name) == "" {
		return fmt.Errorf("template element name must be non-empty")
	}
	if strings.TrimSpace(info.Type) == "" {
		return fmt.Errorf("template element %q: type must be non-empty", info.Name)
	}
	if _, exists := r.byName[info.Name]; exists {
		return fmt.Errorf("template element %q registered twice", info.Name)
	}
	r.byName[info.Name] = info
	return nil
}

// Lookup returns the metadata of the element name.
func (r *Registry) Lookup(name string) (ElementInfo, bool) {
	if r == nil {
		return ElementInfo{}, false
	}
	info, ok := r.byName[name]
	return info, ok
}

// Names returns the registered element names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Info returns the metadata for a model element.
func (r *Registry) Info(n *model.Node) (ElementInfo, bool) {
	if n == nil || n.IsText() {
		return ElementInfo{}, false
	}
	return r.Lookup(n.Type)
}

// Nearest returns the closest element to n, n included, whose metadata
// satisfies match.
func (r *Registry) Nearest(n *model.Node, match func(ElementInfo) bool) (*model.Node, ElementInfo, bool) {
	for cur := n; cur != nil; cur = cur.Parent() {
		if info, ok := r.Info(cur); ok && match(info) {
			return cur, info, true
		}
	}
	return nil, ElementInfo{}, false
}

// ContainerOf returns the closest element of one of the template types.
func (r *Registry) ContainerOf(n *model.Node, types ...string) (*model.Node, ElementInfo, bool) {
	return r.Nearest(n, func(info ElementInfo) bool {
		return slices.Contains(types, info.Type)
	})
}
