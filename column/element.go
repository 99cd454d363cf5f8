package column

import (
	"fmt"
	"iter"
	"slices"

	"github.com/arloliu/plycol/errs"
)

// Element holds the columns of one PLY element.
//
// Columns are kept in declaration order for encoding; PropertyNames and All
// expose them sorted by name for introspection.
type Element struct {
	name    string
	count   int
	order   []string
	columns map[string]*Column
}

// NewElement creates an empty element of count records.
func NewElement(name string, count int) *Element {
	return &Element{
		name:    name,
		count:   count,
		columns: make(map[string]*Column),
	}
}

func (e *Element) Name() string {
	return e.name
}

// Count returns the declared number of records.
func (e *Element) Count() int {
	return e.count
}

// Len returns the number of properties.
func (e *Element) Len() int {
	return len(e.order)
}

// Add appends a property column.
//
// Returns errs.ErrSchemaMismatch when the column does not cover exactly Count
// rows and errs.ErrSchema when the name is already taken.
func (e *Element) Add(name string, c *Column) error {
	if c == nil {
		return fmt.Errorf("%w: element %q property %q: nil column", errs.ErrSchemaMismatch, e.name, name)
	}
	if _, ok := e.columns[name]; ok {
		return fmt.Errorf("%w: element %q has duplicate property %q", errs.ErrSchema, e.name, name)
	}
	if c.Rows() != e.count {
		return fmt.Errorf("%w: element %q property %q has %d rows, element count is %d",
			errs.ErrSchemaMismatch, e.name, name, c.Rows(), e.count)
	}

	e.order = append(e.order, name)
	e.columns[name] = c

	return nil
}

// Column returns the column of property name. A missing property is reported
// through ok and is not an error: optional properties are routinely absent.
func (e *Element) Column(name string) (*Column, bool) {
	c, ok := e.columns[name]
	return c, ok
}

func (e *Element) Has(name string) bool {
	_, ok := e.columns[name]
	return ok
}

// DeclaredNames returns the property names in declaration order.
func (e *Element) DeclaredNames() []string {
	return slices.Clone(e.order)
}

// PropertyNames returns the property names sorted by name.
func (e *Element) PropertyNames() []string {
	names := slices.Clone(e.order)
	slices.Sort(names)

	return names
}

// All iterates properties sorted by name.
func (e *Element) All() iter.Seq2[string, *Column] {
	return func(yield func(string, *Column) bool) {
		for _, name := range e.PropertyNames() {
			if !yield(name, e.columns[name]) {
				return
			}
		}
	}
}

// Declared iterates properties in declaration order.
func (e *Element) Declared() iter.Seq2[string, *Column] {
	return func(yield func(string, *Column) bool) {
		for _, name := range e.order {
			if !yield(name, e.columns[name]) {
				return
			}
		}
	}
}

// Stack returns a (Count, len(names)) matrix column stacking the named scalar
// properties, e.g. Stack("x", "y", "z") for vertex positions.
//
// The result is absent when any name is missing, refers to a list, or when the
// columns do not share one kind: values are never promoted. Stacking a single
// property shares its storage; several properties are interleaved into a new
// buffer.
func (e *Element) Stack(names ...string) (*Column, bool) {
	if len(names) == 0 {
		return nil, false
	}

	cols := make([]*Column, len(names))
	for i, name := range names {
		c, ok := e.columns[name]
		if !ok || c.layout != LayoutScalar {
			return nil, false
		}
		if i > 0 && c.kind != cols[0].kind {
			return nil, false
		}
		cols[i] = c
	}

	kind := cols[0].kind
	width := len(cols)
	if width == 1 {
		return &Column{kind: kind, layout: LayoutMatrix, rows: e.count, width: 1, data: cols[0].data}, true
	}

	size := kind.Size()
	stride := width * size
	data := alloc(e.count * stride)
	for j, c := range cols {
		src := c.data
		dst := data[j*size:]
		for r := 0; r < e.count; r++ {
			copy(dst[r*stride:r*stride+size], src[r*size:(r+1)*size])
		}
	}

	return &Column{kind: kind, layout: LayoutMatrix, rows: e.count, width: width, data: data}, true
}

// Equal reports whether both elements have the same name, count and
// properties in the same order with equal columns.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.name != other.name || e.count != other.count || !slices.Equal(e.order, other.order) {
		return false
	}
	for _, name := range e.order {
		if !e.columns[name].Equal(other.columns[name]) {
			return false
		}
	}

	return true
}
