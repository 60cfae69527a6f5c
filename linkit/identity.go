package linkit

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rgonek/linkit/model"
)

const (
	// MarkLink is the mark type holding a Link Identity.
	MarkLink = "link"
	// AttrHref is the identity attribute holding the link target.
	AttrHref = "href"
	// AttrEditorData carries the document snapshot sent to the link selector.
	AttrEditorData = "editorData"
	// AttrLinksFilter names the element class a selection parent restricts the snapshot to.
	AttrLinksFilter = "links-filter"
	// AttrLinksFilterParent names the ancestor class that scopes AttrLinksFilter.
	AttrLinksFilterParent = "links-filter-parent"
	// AttrLinkTarget is the button element attribute mirroring href.
	AttrLinkTarget = "link-target"
)

// contextKeys describe the request and are never persisted as link metadata.
var contextKeys = []string{AttrEditorData, AttrLinksFilter}

// Identity is one hyperlink's full data: the target and its metadata.
type Identity struct {
	Href  string            `json:"href"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// NewIdentity returns an identity owning a copy of attrs.
func NewIdentity(href string, attrs map[string]string) Identity {
	return Identity{Href: href, Attrs: maps.Clone(attrs)}
}

// Equal reports whether both identities have the same href and metadata.
func (id Identity) Equal(other Identity) bool {
	if id.Href != other.Href || len(id.Attrs) != len(other.Attrs) {
		return false
	}
	return maps.Equal(id.Attrs, other.Attrs)
}

// Mark projects the identity onto a link mark with flat attrs.
func (id Identity) Mark() model.Mark {
	attrs := make(map[string]any, len(id.Attrs)+1)
	for key, value := range id.Attrs {
		attrs[key] = value
	}
	attrs[AttrHref] = id.Href
	return model.Mark{Type: MarkLink, Attrs: attrs}
}

// Values returns the flat href plus metadata mapping the link selector receives.
func (id Identity) Values() map[string]string {
	values := make(map[string]string, len(id.Attrs)+1)
	for key, value := range id.Attrs {
		values[key] = value
	}
	values[AttrHref] = id.Href
	return values
}

func (id Identity) String() string {
	keys := slices.Sorted(maps.Keys(id.Attrs))
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+id.Attrs[key])
	}
	return fmt.Sprintf("%s{%s}", id.Href, strings.Join(parts, ","))
}

// IdentityFromMark reads an identity back from a link mark.
func IdentityFromMark(m model.Mark) Identity {
	id := Identity{Href: m.GetStringAttr(AttrHref, "")}
	for key, value := range m.Attrs {
		if key == AttrHref {
			continue
		}
		if id.Attrs == nil {
			id.Attrs = make(map[string]string, len(m.Attrs))
		}
		if s, ok := value.(string); ok {
			id.Attrs[key] = s
		} else {
			id.Attrs[key] = fmt.Sprint(value)
		}
	}
	return id
}

// ParseIdentity validates values returned by a link selector. Request
// context keys are dropped.
func ParseIdentity(values map[string]string) (Identity, error) {
	href, ok := values[AttrHref]
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing %q", ErrMalformedIdentity, AttrHref)
	}
	id := Identity{Href: strings.TrimSpace(href)}
	if id.Href == "" {
		return Identity{}, fmt.Errorf("%w: empty %q", ErrMalformedIdentity, AttrHref)
	}
	for key, value := range values {
		if key == AttrHref || slices.Contains(contextKeys, key) {
			continue
		}
		if strings.TrimSpace(key) == "" {
			return Identity{}, fmt.Errorf("%w: empty attribute name", ErrMalformedIdentity)
		}
		if id.Attrs == nil {
			id.Attrs = make(map[string]string, len(values))
		}
		id.Attrs[key] = value
	}
	return id, nil
}

// Read returns the identity carried by node.
func Read(n *model.Node) (Identity, bool) {
	if !n.IsText() {
		return Identity{}, false
	}
	m, ok := n.Mark(MarkLink)
	if !ok {
		return Identity{}, false
	}
	return IdentityFromMark(m), true
}

func hasHref(n *model.Node, href string) bool {
	if !n.IsText() {
		return false
	}
	m, ok := n.Mark(MarkLink)
	return ok && m.GetStringAttr(AttrHref, "") == href
}
