// Package plycol reads and writes PLY (Polygon File Format) files into
// columnar buffers.
//
// A PLY file declares its own schema: named elements ("vertex", "face") with a
// record count, each with typed scalar or list properties. plycol decodes every
// property into one contiguous buffer of exactly the declared type, so a
// multi-million point cloud becomes a handful of slices instead of millions of
// records.
//
// # Basic Usage
//
// Loading a mesh:
//
//	schema, store, err := plycol.Load("bunny.ply")
//	if err != nil {
//	    return err
//	}
//	positions, ok := store.Stack("vertex", "x", "y", "z") // (count, 3)
//	faces, _ := store.Column("face", "vertex_indices")      // (count, 3) for triangles
//
// Saving it back in another body format, compressed with zstd:
//
//	err = plycol.Save("bunny.ply.zst", schema, store, format.BinaryLittleEndian)
//
// # Package Structure
//
// This package provides file level wrappers. The header, codec and column
// packages expose the schema parser, the body codec and the columnar store
// for finer control, compress provides the containers and arrowio exports
// elements to Apache Arrow.
package plycol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/arloliu/plycol/codec"
	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/compress"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
)

const fileBufferSize = 256 * 1024

// Load reads the PLY file at path.
//
// Compressed files (zstd, gzip, lz4, s2) are recognized by their leading
// bytes and decompressed on the fly, whatever their name.
//
// Parameters:
//   - path: file to read
//   - opts: options (WithDecoderOptions, WithLogger)
//
// Returns:
//   - *header.Schema: the parsed header
//   - *column.Store: one column per declared property
//   - error: errs.ErrFileNotFound when path is not an existing regular file,
//     or any header or body error
func Load(path string, opts ...Option) (*header.Schema, *column.Store, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	f, size, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	schema, store, ct, err := read(f, size, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.logger.Debug("loaded ply file",
		zap.String("path", path),
		zap.Stringer("format", schema.Format),
		zap.Stringer("compression", ct),
		zap.Int("elements", store.Len()),
		zap.Int64("bytes", size),
		zap.Duration("elapsed", time.Since(start)),
	)

	return schema, store, nil
}

// Read decodes a PLY stream, detecting and removing any compression container.
func Read(r io.Reader, opts ...Option) (*header.Schema, *column.Store, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	schema, store, _, err := read(r, -1, cfg)

	return schema, store, err
}

// read decodes r. size is the stream size when known, -1 otherwise; it bounds
// the decoder only for uncompressed streams.
func read(r io.Reader, size int64, cfg *config) (*header.Schema, *column.Store, format.CompressionType, error) {
	rc, ct, err := compress.NewReader(bufio.NewReaderSize(r, fileBufferSize))
	if err != nil {
		return nil, nil, ct, err
	}
	defer rc.Close()

	decOpts := cfg.decoderOpts
	if ct == format.CompressionNone && size >= 0 {
		decOpts = append([]codec.DecoderOption{codec.WithSizeHint(size)}, decOpts...)
	}

	dec, err := codec.NewDecoder(rc, decOpts...)
	if err != nil {
		return nil, nil, ct, err
	}
	schema, store, err := dec.Decode()
	if err != nil {
		return nil, nil, ct, err
	}

	return schema, store, ct, nil
}

// Save writes schema and store to path in body format f.
//
// The store is checked against the schema and the parent directory must
// exist before anything is created. The file is written next to its final
// name and renamed into place, so an existing file is replaced only by a
// complete one.
//
// Parameters:
//   - path: destination; the extension selects compression unless WithCompression is given
//   - schema: header to write; its format is replaced by f
//   - store: columns holding every declared property
//   - f: body format
//   - opts: options (WithCompression, WithEncoderOptions, WithLogger)
//
// Returns:
//   - error: errs.ErrDirectoryNotFound, errs.ErrSchemaMismatch or an I/O error
func Save(path string, schema *header.Schema, store *column.Store, f format.Format, opts ...Option) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}
	if !f.Valid() {
		return fmt.Errorf("%w: format %d", errs.ErrInvalidFormat, f)
	}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", errs.ErrDirectoryNotFound, dir)
	}

	s := schema.Clone()
	s.Format = f
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := codec.Check(s, store); err != nil {
		return err
	}

	ct := cfg.compression
	if !cfg.compressionSet {
		ct = compress.FromPath(path)
	}

	start := time.Now()
	err = replaceFile(path, func(w io.Writer) error {
		return write(w, s, store, ct, cfg)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cfg.logger.Debug("saved ply file",
		zap.String("path", path),
		zap.Stringer("format", f),
		zap.Stringer("compression", ct),
		zap.Int("elements", len(s.Elements)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// SaveStore writes store to path, deriving the schema with header.FromStore.
func SaveStore(path string, store *column.Store, f format.Format, opts ...Option) error {
	schema, err := header.FromStore(store, f)
	if err != nil {
		return err
	}

	return Save(path, schema, store, f, opts...)
}

// Write encodes schema and store to w in body format f, wrapped in the
// container selected by WithCompression.
func Write(w io.Writer, schema *header.Schema, store *column.Store, f format.Format, opts ...Option) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}
	if !f.Valid() {
		return fmt.Errorf("%w: format %d", errs.ErrInvalidFormat, f)
	}

	s := schema.Clone()
	s.Format = f

	return write(w, s, store, cfg.compression, cfg)
}

func write(w io.Writer, schema *header.Schema, store *column.Store, ct format.CompressionType, cfg *config) error {
	c, err := compress.GetCodec(ct)
	if err != nil {
		return err
	}
	cw, err := c.NewWriter(w)
	if err != nil {
		return err
	}

	enc, err := codec.NewEncoder(cw, cfg.encoderOpts...)
	if err != nil {
		_ = cw.Close()
		return err
	}
	if err := enc.Encode(schema, store); err != nil {
		_ = cw.Close()
		return err
	}

	return cw.Close()
}

// LoadFloatTable reads a single-element binary file of float properties into
// one row-major matrix, the layout of Gaussian splat point clouds.
func LoadFloatTable(path string, opts ...Option) (codec.FloatTable, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return codec.FloatTable{}, err
	}

	f, size, err := openFile(path)
	if err != nil {
		return codec.FloatTable{}, err
	}
	defer f.Close()

	rc, ct, err := compress.NewReader(bufio.NewReaderSize(f, fileBufferSize))
	if err != nil {
		return codec.FloatTable{}, fmt.Errorf("%s: %w", path, err)
	}
	defer rc.Close()

	decOpts := cfg.decoderOpts
	if ct == format.CompressionNone {
		decOpts = append([]codec.DecoderOption{codec.WithSizeHint(size)}, decOpts...)
	}

	table, err := codec.ReadFloatTable(rc, decOpts...)
	if err != nil {
		return codec.FloatTable{}, fmt.Errorf("%s: %w", path, err)
	}

	cfg.logger.Debug("loaded float table",
		zap.String("path", path),
		zap.Int("rows", table.Rows),
		zap.Int("properties", table.Width()),
	)

	return table, nil
}

// SaveFloatTable writes table to path as a binary little-endian file, with
// the same directory check and compression selection as Save.
func SaveFloatTable(path string, table codec.FloatTable, opts ...Option) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", errs.ErrDirectoryNotFound, dir)
	}
	if len(table.Data) != table.Rows*table.Width() {
		return fmt.Errorf("%w: float table holds %d values, shape is (%d, %d)",
			errs.ErrSchemaMismatch, len(table.Data), table.Rows, table.Width())
	}

	ct := cfg.compression
	if !cfg.compressionSet {
		ct = compress.FromPath(path)
	}
	err = replaceFile(path, func(w io.Writer) error {
		c, err := compress.GetCodec(ct)
		if err != nil {
			return err
		}
		cw, err := c.NewWriter(w)
		if err != nil {
			return err
		}
		if err := codec.WriteFloatTable(cw, table); err != nil {
			_ = cw.Close()
			return err
		}

		return cw.Close()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cfg.logger.Debug("saved float table",
		zap.String("path", path),
		zap.Stringer("compression", ct),
		zap.Int("rows", table.Rows),
	)

	return nil
}

// replaceFile writes a temporary file next to path through fn and renames it
// over path once fn and the final flush succeeded.
func replaceFile(path string, fn func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, fileBufferSize)
	if err = fn(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// openFile opens path for reading and returns its size.
func openFile(path string) (*os.File, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", errs.ErrFileNotFound, path)
		}

		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%w: %s is not a regular file", errs.ErrFileNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	return f, info.Size(), nil
}
