// Package header parses and writes the textual PLY header.
//
// A header declares the body format, free-text comments and an ordered list of
// elements, each with a record count and an ordered list of scalar or list
// properties:
//
//	ply
//	format binary_little_endian 1.0
//	comment made by plytool
//	element vertex 8
//	property float x
//	property float y
//	property float z
//	element face 6
//	property list uchar int vertex_indices
//	end_header
//
// Parse consumes exactly the header bytes, so the body decoder can continue
// from the same reader. Schema.Bytes is the inverse and emits LF terminators.
package header
