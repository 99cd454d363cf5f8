// Package errs defines the sentinel errors returned by the PLY codec.
//
// Every failure is returned wrapped with context (path, element, property,
// record index, offending token) using fmt.Errorf("%w: ..."), so callers
// classify failures with errors.Is:
//
//	_, _, err := plycol.Load(path)
//	if errors.Is(err, errs.ErrFileNotFound) {
//	    // ...
//	}
//
// None of these conditions are retried internally and none yield partial
// results.
package errs

import "errors"

// Path preconditions.
var (
	ErrFileNotFound      = errors.New("ply: file not found")
	ErrDirectoryNotFound = errors.New("ply: parent directory not found")
)

// Header errors. The file cannot be loaded at all.
var (
	ErrInvalidFormat = errors.New("ply: invalid format")
	ErrSchema        = errors.New("ply: invalid schema")
	ErrUnknownType   = errors.New("ply: unknown property type")
)

// Body errors: the records disagree with the declared schema.
var (
	ErrTruncatedFile   = errors.New("ply: truncated file")
	ErrMalformedRecord = errors.New("ply: malformed record")
	ErrIrregularList   = errors.New("ply: irregular list property")
)

// Encoder and API usage errors.
var (
	ErrSchemaMismatch         = errors.New("ply: store does not match schema")
	ErrKindMismatch           = errors.New("ply: column kind mismatch")
	ErrUnsupportedCompression = errors.New("ply: unsupported compression")
)
