// Package column implements the columnar store that decoded PLY bodies are
// materialized into and that the encoder serializes from.
//
// # Layout
//
// Every property of an element is one Column: a single contiguous buffer of
// values in host byte order, in exactly the kind declared by the header.
//
//   - scalar properties: shape (count)
//   - list properties of constant arity (triangles, quads): shape (count, width)
//   - list properties of varying arity, when requested: offsets plus flat values
//
// # Access
//
// Buffers are addressed by name; a missing element or property is reported as
// absence, not as an error:
//
//	if normals, ok := store.Stack("vertex", "nx", "ny", "nz"); ok {
//	    n := column.MustValues[float32](normals) // row-major (count, 3)
//	    _ = n
//	}
//
// Typed views never convert: Values[float64] on a float column reports false.
//
// # Ordering
//
// Elements and properties remember the order of the header they came from so
// that a load followed by a save reproduces it. The introspection helpers
// (ElementNames, PropertyNames, All) use sorted order instead so callers do not
// depend on file-specific ordering.
package column
