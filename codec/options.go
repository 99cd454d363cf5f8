package codec

import (
	"fmt"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/internal/options"
)

// DecoderOption configures a Decoder.
type DecoderOption = options.Option[*Decoder]

// EncoderOption configures an Encoder.
type EncoderOption = options.Option[*Encoder]

// WithRaggedLists decodes every list property into ragged columns (offsets
// plus flat values) instead of failing on records of differing length.
func WithRaggedLists() DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.raggedAll = true
	})
}

// WithRaggedProperty decodes a single list property into a ragged column.
// Other list properties keep the fixed-width layout.
//
// Can be given several times, e.g. for "face"/"vertex_indices" and
// "tristrips"/"vertex_indices".
func WithRaggedProperty(element, property string) DecoderOption {
	return options.NoError(func(d *Decoder) {
		if d.ragged == nil {
			d.ragged = make(map[propertyKey]struct{})
		}
		d.ragged[propertyKey{element: element, property: property}] = struct{}{}
	})
}

// WithSizeHint declares the total size in bytes of the stream, header
// included.
//
// With a hint, element and list counts that cannot fit in the remaining bytes
// are rejected with errs.ErrTruncatedFile before anything is allocated for
// them. A negative size is rejected.
func WithSizeHint(size int64) DecoderOption {
	return options.New(func(d *Decoder) error {
		if size < 0 {
			return fmt.Errorf("%w: negative size hint %d", errs.ErrTruncatedFile, size)
		}
		d.sizeHint = size

		return nil
	})
}

// WithFormat overrides the body format declared by the schema passed to Encode.
func WithFormat(f format.Format) EncoderOption {
	return options.New(func(e *Encoder) error {
		if !f.Valid() {
			return fmt.Errorf("%w: format %d", errs.ErrInvalidFormat, f)
		}
		e.format = f

		return nil
	})
}

// WithComments appends comment lines to the header.
func WithComments(comments ...string) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.comments = append(e.comments, comments...)
	})
}

// WithObjInfo appends obj_info lines to the header.
func WithObjInfo(info ...string) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.objInfo = append(e.objInfo, info...)
	})
}

type propertyKey struct {
	element  string
	property string
}
