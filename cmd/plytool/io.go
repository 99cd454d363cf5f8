package main

import (
	"bufio"
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/arloliu/plycol"
	"github.com/arloliu/plycol/codec"
	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/compress"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/arloliu/plycol/internal/storage"
)

const ioBufferSize = 256 * 1024

// document is a decoded PLY file and where it came from.
type document struct {
	loc         storage.Location
	size        int64
	compression format.CompressionType
	schema      *header.Schema
	store       *column.Store
}

func (a *app) decoderOptions(ragged bool) []codec.DecoderOption {
	if ragged || a.cfg.Decode.Ragged {
		return []codec.DecoderOption{codec.WithRaggedLists()}
	}

	return nil
}

// load decodes the PLY file at uri, detecting its container.
func (a *app) load(ctx context.Context, uri string, ragged bool) (*document, error) {
	loc, err := storage.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, size, err := a.storage.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, ioBufferSize)
	ct, err := compress.Sniff(br)
	if err != nil {
		return nil, err
	}

	decOpts := a.decoderOptions(ragged)
	if ct == format.CompressionNone && size >= 0 {
		decOpts = append(decOpts, codec.WithSizeHint(size))
	}

	schema, store, err := plycol.Read(br, plycol.WithLogger(a.logger), plycol.WithDecoderOptions(decOpts...))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("decoded", zap.Stringer("location", loc), zap.Stringer("compression", ct), zap.Int64("bytes", size))

	return &document{loc: loc, size: size, compression: ct, schema: schema, store: store}, nil
}

// save encodes schema and store to uri. ct selects the container; without
// one it is inferred from the extension of uri.
func (a *app) save(ctx context.Context, uri string, schema *header.Schema, store *column.Store,
	f format.Format, ct format.CompressionType, ctSet bool,
) error {
	loc, err := storage.ParseURI(uri)
	if err != nil {
		return err
	}
	if !ctSet {
		ct = compress.FromPath(loc.Key)
	}

	opts := []plycol.Option{plycol.WithLogger(a.logger), plycol.WithCompression(ct)}
	if len(a.cfg.Encode.Comments) > 0 {
		opts = append(opts, plycol.WithEncoderOptions(codec.WithComments(a.cfg.Encode.Comments...)))
	}

	if loc.IsLocal() {
		return plycol.Save(loc.Key, schema, store, f, opts...)
	}

	// remote objects are validated up front so a mismatch never starts an upload
	s := schema.Clone()
	s.Format = f
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := codec.Check(s, store); err != nil {
		return err
	}

	return a.storage.Put(ctx, loc, func(w io.Writer) error {
		bw := bufio.NewWriterSize(w, ioBufferSize)
		if err := plycol.Write(bw, s, store, f, opts...); err != nil {
			return err
		}

		return bw.Flush()
	})
}
