package column

import (
	"fmt"
	"iter"
	"slices"

	"github.com/arloliu/plycol/errs"
)

// Store is the in-memory columnar form of a PLY body: an ordered mapping of
// element name to Element.
//
// A Store produced by the decoder is never modified afterwards and may be read
// from multiple goroutines concurrently. Building a Store with AddElement is
// not safe for concurrent use.
type Store struct {
	order    []string
	elements map[string]*Element
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{elements: make(map[string]*Element)}
}

// AddElement appends an element. Element names are unique.
func (s *Store) AddElement(e *Element) error {
	if e == nil {
		return fmt.Errorf("%w: nil element", errs.ErrSchema)
	}
	if _, ok := s.elements[e.name]; ok {
		return fmt.Errorf("%w: duplicate element %q", errs.ErrSchema, e.name)
	}

	s.order = append(s.order, e.name)
	s.elements[e.name] = e

	return nil
}

// Element returns the named element, absent when the file did not declare it.
func (s *Store) Element(name string) (*Element, bool) {
	e, ok := s.elements[name]
	return e, ok
}

// Column returns the buffer of (element, property). Absence is not an error.
func (s *Store) Column(element, property string) (*Column, bool) {
	e, ok := s.elements[element]
	if !ok {
		return nil, false
	}

	return e.Column(property)
}

// Stack is Element.Stack addressed by element name.
func (s *Store) Stack(element string, properties ...string) (*Column, bool) {
	e, ok := s.elements[element]
	if !ok {
		return nil, false
	}

	return e.Stack(properties...)
}

// Len returns the number of elements.
func (s *Store) Len() int {
	return len(s.order)
}

// ElementNames returns the element names sorted by name.
func (s *Store) ElementNames() []string {
	names := slices.Clone(s.order)
	slices.Sort(names)

	return names
}

// DeclaredElements returns the elements in header order.
func (s *Store) DeclaredElements() []*Element {
	out := make([]*Element, len(s.order))
	for i, name := range s.order {
		out[i] = s.elements[name]
	}

	return out
}

// All iterates elements sorted by name.
func (s *Store) All() iter.Seq2[string, *Element] {
	return func(yield func(string, *Element) bool) {
		for _, name := range s.ElementNames() {
			if !yield(name, s.elements[name]) {
				return
			}
		}
	}
}

// Equal reports whether both stores hold equal elements in the same order.
func (s *Store) Equal(other *Store) bool {
	if s == nil || other == nil {
		return s == other
	}
	if !slices.Equal(s.order, other.order) {
		return false
	}
	for _, name := range s.order {
		if !s.elements[name].Equal(other.elements[name]) {
			return false
		}
	}

	return true
}
