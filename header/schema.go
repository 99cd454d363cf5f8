package header

import (
	"fmt"
	"strings"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/internal/hash"
)

// DefaultVersion is written on the format line when a schema carries none.
const DefaultVersion = "1.0"

// Property declares one field of an element. CountKind is format.KindInvalid
// for scalar properties.
type Property struct {
	Name      string
	Kind      format.Kind
	CountKind format.Kind
}

// Scalar declares a scalar property.
func Scalar(name string, kind format.Kind) Property {
	return Property{Name: name, Kind: kind}
}

// List declares a list property whose per-record length is stored as countKind.
func List(name string, countKind, valueKind format.Kind) Property {
	return Property{Name: name, Kind: valueKind, CountKind: countKind}
}

func (p Property) IsList() bool {
	return p.CountKind != format.KindInvalid
}

// String renders the property as its header line.
func (p Property) String() string {
	if p.IsList() {
		return "property list " + p.CountKind.String() + " " + p.Kind.String() + " " + p.Name
	}

	return "property " + p.Kind.String() + " " + p.Name
}

// Element declares a named group of Count records.
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// Property looks up a property by name.
func (e *Element) Property(name string) (Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}

	return Property{}, false
}

// RowSize returns the binary size of one record when the element has no list
// properties. ok is false when any property is a list.
func (e *Element) RowSize() (size int, ok bool) {
	for _, p := range e.Properties {
		if p.IsList() {
			return 0, false
		}
		size += p.Kind.Size()
	}

	return size, true
}

// MinRowSize returns the smallest possible binary size of one record: list
// properties contribute only their count.
func (e *Element) MinRowSize() int {
	size := 0
	for _, p := range e.Properties {
		if p.IsList() {
			size += p.CountKind.Size()
			continue
		}
		size += p.Kind.Size()
	}

	return size
}

// Schema is the parsed PLY header.
type Schema struct {
	Format   format.Format
	Version  string
	Comments []string
	ObjInfo  []string
	Elements []Element
}

// Element looks up an element declaration by name.
func (s *Schema) Element(name string) (*Element, bool) {
	for i := range s.Elements {
		if s.Elements[i].Name == name {
			return &s.Elements[i], true
		}
	}

	return nil, false
}

// Validate checks the invariants the parser enforces, for schemas built by hand.
func (s *Schema) Validate() error {
	if !s.Format.Valid() {
		return fmt.Errorf("%w: format %d", errs.ErrInvalidFormat, s.Format)
	}

	elements := make(map[string]struct{}, len(s.Elements))
	for i := range s.Elements {
		e := &s.Elements[i]
		if !validName(e.Name) {
			return fmt.Errorf("%w: invalid element name %q", errs.ErrSchema, e.Name)
		}
		if _, dup := elements[e.Name]; dup {
			return fmt.Errorf("%w: duplicate element %q", errs.ErrSchema, e.Name)
		}
		elements[e.Name] = struct{}{}

		if e.Count < 0 {
			return fmt.Errorf("%w: element %q has negative count %d", errs.ErrSchema, e.Name, e.Count)
		}

		props := make(map[string]struct{}, len(e.Properties))
		for _, p := range e.Properties {
			if !validName(p.Name) {
				return fmt.Errorf("%w: element %q: invalid property name %q", errs.ErrSchema, e.Name, p.Name)
			}
			if _, dup := props[p.Name]; dup {
				return fmt.Errorf("%w: element %q has duplicate property %q", errs.ErrSchema, e.Name, p.Name)
			}
			props[p.Name] = struct{}{}

			if !p.Kind.Valid() {
				return fmt.Errorf("%w: element %q property %q: %q", errs.ErrUnknownType, e.Name, p.Name, p.Kind.String())
			}
			if p.IsList() && !p.CountKind.IsInteger() {
				return fmt.Errorf("%w: element %q property %q: list count must be an integer type, got %s",
					errs.ErrSchema, e.Name, p.Name, p.CountKind)
			}
		}
	}

	return nil
}

// Fingerprint returns an xxHash64 of the element and property declarations.
//
// Format, version and comments are excluded, so converting a file between
// ascii and binary keeps its fingerprint.
func (s *Schema) Fingerprint() uint64 {
	d := hash.NewDigest()
	for _, e := range s.Elements {
		d.WriteString(e.Name)
		d.WriteUint64(uint64(e.Count))
		d.WriteUint64(uint64(len(e.Properties)))
		for _, p := range e.Properties {
			d.WriteString(p.Name)
			d.WriteUint64(uint64(p.Kind))
			d.WriteUint64(uint64(p.CountKind))
		}
	}

	return d.Sum64()
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	out := &Schema{
		Format:   s.Format,
		Version:  s.Version,
		Comments: append([]string(nil), s.Comments...),
		ObjInfo:  append([]string(nil), s.ObjInfo...),
		Elements: make([]Element, len(s.Elements)),
	}
	for i, e := range s.Elements {
		out.Elements[i] = Element{
			Name:       e.Name,
			Count:      e.Count,
			Properties: append([]Property(nil), e.Properties...),
		}
	}

	return out
}

// FromStore derives a schema describing store in its declared order.
//
// List properties get the smallest unsigned count kind that holds their
// longest row, uchar for the usual triangle and quad faces. Matrix columns
// (stacked views) cannot be described by a PLY property and are rejected.
func FromStore(store *column.Store, f format.Format) (*Schema, error) {
	s := &Schema{Format: f, Version: DefaultVersion}

	for _, el := range store.DeclaredElements() {
		decl := Element{Name: el.Name(), Count: el.Count()}
		for name, c := range el.Declared() {
			switch c.Layout() {
			case column.LayoutScalar:
				decl.Properties = append(decl.Properties, Scalar(name, c.Kind()))
			case column.LayoutList, column.LayoutRagged:
				decl.Properties = append(decl.Properties, List(name, countKindFor(c.MaxRowLen()), c.Kind()))
			default:
				return nil, fmt.Errorf("%w: element %q property %q: %s columns have no PLY representation",
					errs.ErrSchemaMismatch, el.Name(), name, c.Layout())
			}
		}
		s.Elements = append(s.Elements, decl)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func countKindFor(maxLen int) format.Kind {
	switch {
	case uint64(maxLen) <= format.Uint8.MaxCount():
		return format.Uint8
	case uint64(maxLen) <= format.Uint16.MaxCount():
		return format.Uint16
	default:
		return format.Uint32
	}
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\r\n")
}
