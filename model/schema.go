package model

// MarkRule inspects a mark write on a text child of parent and returns an
// error when it is not allowed.
type MarkRule func(parent *Node, markType string) error

// Schema decides which marks may be written where.
type Schema struct {
	disallow map[string]map[string]struct{}
	rules    []MarkRule
}

// NewSchema returns a schema that only restricts marks to text runs.
func NewSchema() *Schema {
	return &Schema{disallow: make(map[string]map[string]struct{})}
}

// Disallow forbids markType on text anywhere inside the given element types.
func (s *Schema) Disallow(markType string, elementTypes ...string) {
	for _, elementType := range elementTypes {
		if s.disallow[elementType] == nil {
			s.disallow[elementType] = make(map[string]struct{})
		}
		s.disallow[elementType][markType] = struct{}{}
	}
}

// AddRule appends a custom mark rule.
func (s *Schema) AddRule(rule MarkRule) {
	s.rules = append(s.rules, rule)
}

// CheckMark reports whether markType may be set on text inside parent.
func (s *Schema) CheckMark(parent *Node, markType string) error {
	if parent == nil {
		return ErrDetached
	}
	if parent.Type == TypeDoc {
		return &StructuralViolationError{Parent: parent.Type, Mark: markType, Reason: "text is not allowed at the document root"}
	}
	for cur := parent; cur != nil; cur = cur.parent {
		if _, denied := s.disallow[cur.Type][markType]; denied {
			return &StructuralViolationError{Parent: cur.Type, Mark: markType, Reason: "mark is not allowed in this element"}
		}
	}
	for _, rule := range s.rules {
		if err := rule(parent, markType); err != nil {
			return err
		}
	}
	return nil
}
