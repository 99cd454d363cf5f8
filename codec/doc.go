// Package codec decodes PLY bodies into column stores and encodes column
// stores back into PLY streams.
//
// # Decoding
//
//	dec, err := codec.NewDecoder(r, codec.WithRaggedProperty("face", "vertex_indices"))
//	if err != nil {
//	    return err
//	}
//	schema, store, err := dec.Decode()
//
// Binary bodies are copied into the column buffers in file byte order and
// swapped once per column when the file order differs from the host. Elements
// without list properties are read in pooled chunks of whole records.
//
// List properties are expected to have the same length in every record and
// decode into (count, width) columns; a record of another length fails with
// errs.ErrIrregularList unless the property was requested as ragged.
//
// # Encoding
//
//	enc, err := codec.NewEncoder(w, codec.WithFormat(format.BinaryLittleEndian))
//	if err != nil {
//	    return err
//	}
//	err = enc.Encode(schema, store)
//
// The store is checked against the schema before anything is written.
// Floats are written in ascii with the shortest representation that parses
// back to the same value, so an ascii round trip is lossless.
package codec
