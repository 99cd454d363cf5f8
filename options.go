package plycol

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/plycol/codec"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/internal/options"
)

// Option configures Load, Save and their stream variants.
type Option = options.Option[*config]

type config struct {
	compression    format.CompressionType
	compressionSet bool
	logger         *zap.Logger
	decoderOpts    []codec.DecoderOption
	encoderOpts    []codec.EncoderOption
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		compression: format.CompressionNone,
		logger:      zap.NewNop(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithCompression selects the container written by Save and Write.
//
// Without it, Save infers the container from the file extension and Write
// writes plain PLY. Readers always detect the container themselves.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(c *config) error {
		switch ct {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2,
			format.CompressionLZ4, format.CompressionGzip:
		default:
			return fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, ct)
		}
		c.compression = ct
		c.compressionSet = true

		return nil
	})
}

// WithLogger sets the logger receiving debug traces of loads and saves.
// The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithDecoderOptions passes options to the body decoder, e.g.
// codec.WithRaggedLists().
func WithDecoderOptions(opts ...codec.DecoderOption) Option {
	return options.NoError(func(c *config) {
		c.decoderOpts = append(c.decoderOpts, opts...)
	})
}

// WithEncoderOptions passes options to the body encoder, e.g.
// codec.WithComments("scanned by ...").
func WithEncoderOptions(opts ...codec.EncoderOption) Option {
	return options.NoError(func(c *config) {
		c.encoderOpts = append(c.encoderOpts, opts...)
	})
}
