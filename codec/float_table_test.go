package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/stretchr/testify/require"
)

func splatTable() FloatTable {
	return FloatTable{
		Properties: []string{"x", "y", "z", "opacity"},
		Rows:       3,
		Data: []float32{
			0, 1, 2, 0.5,
			3, 4, 5, -0.25,
			6, 7, 8, float32(math.Inf(1)),
		},
	}
}

func TestFloatTable_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloatTable(&buf, splatTable()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("ply\nformat binary_little_endian 1.0\nelement vertex 3\n")))

	got, err := ReadFloatTable(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, DefaultTableElement, got.Element)
	require.Equal(t, splatTable().Properties, got.Properties)
	require.Equal(t, 3, got.Rows)
	require.Equal(t, 4, got.Width())
	require.Equal(t, splatTable().Data, got.Data)
	require.Equal(t, []float32{3, 4, 5, -0.25}, got.Row(1))

	op, ok := got.Column("opacity")
	require.True(t, ok)
	require.Equal(t, []float32{0.5, -0.25, float32(math.Inf(1))}, op)
	_, ok = got.Column("red")
	require.False(t, ok)
}

func TestFloatTable_MatchesDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloatTable(&buf, splatTable()))

	d, err := NewDecoder(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	_, store, err := d.Decode()
	require.NoError(t, err)

	stacked, ok := store.Stack("vertex", "x", "y", "z", "opacity")
	require.True(t, ok)
	require.Equal(t, splatTable().Data, column.MustValues[float32](stacked))
}

func TestFloatTable_BigEndian(t *testing.T) {
	data := []byte("ply\nformat binary_big_endian 1.0\nelement splat 2\nproperty float a\nproperty float b\nend_header\n")
	for _, v := range []float32{1.5, -2, 3.25, 4} {
		data = binary.BigEndian.AppendUint32(data, math.Float32bits(v))
	}

	got, err := ReadFloatTable(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "splat", got.Element)
	require.Equal(t, []float32{1.5, -2, 3.25, 4}, got.Data)
}

func TestFloatTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  error
	}{
		{"two elements", "ply\nformat binary_little_endian 1.0\nelement a 0\nproperty float x\nelement b 0\nproperty float x\nend_header\n", errs.ErrSchemaMismatch},
		{"ascii", "ply\nformat ascii 1.0\nelement a 1\nproperty float x\nend_header\n1\n", errs.ErrSchemaMismatch},
		{"double", "ply\nformat binary_little_endian 1.0\nelement a 0\nproperty double x\nend_header\n", errs.ErrSchemaMismatch},
		{"list", "ply\nformat binary_little_endian 1.0\nelement a 0\nproperty list uchar float x\nend_header\n", errs.ErrSchemaMismatch},
		{"truncated", "ply\nformat binary_little_endian 1.0\nelement a 2\nproperty float x\nend_header\n\x00\x00\x00\x00", errs.ErrTruncatedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFloatTable(bytes.NewReader([]byte(tt.data)))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFloatTable_HugeCounts(t *testing.T) {
	const (
		overflowing = "ply\nformat binary_little_endian 1.0\nelement splat 2305843009213693952\n" +
			"property float a\nproperty float b\nproperty float c\nproperty float d\nend_header\n"
		large = "ply\nformat binary_little_endian 1.0\nelement splat 1099511627776\n" +
			"property float a\nproperty float b\nend_header\n\x00\x00\x00\x00\x00\x00\x00\x00"
	)

	tests := []struct {
		name   string
		data   string
		hinted bool
	}{
		{"overflowing shape with size hint", overflowing, true},
		{"overflowing shape streamed", overflowing, false},
		{"large count streamed", large, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []DecoderOption
			if tt.hinted {
				opts = append(opts, WithSizeHint(int64(len(tt.data))))
			}

			require.NotPanics(t, func() {
				_, err := ReadFloatTable(bytes.NewReader([]byte(tt.data)), opts...)
				require.ErrorIs(t, err, errs.ErrTruncatedFile)
			})
		})
	}
}

func TestWriteFloatTable_ShapeMismatch(t *testing.T) {
	tbl := splatTable()
	tbl.Data = tbl.Data[:5]

	var buf bytes.Buffer
	require.ErrorIs(t, WriteFloatTable(&buf, tbl), errs.ErrSchemaMismatch)
	require.Zero(t, buf.Len())
}

func TestWriteFloatTable_InvalidName(t *testing.T) {
	tbl := splatTable()
	tbl.Properties[0] = "bad name"

	require.ErrorIs(t, WriteFloatTable(&bytes.Buffer{}, tbl), errs.ErrSchema)
}

func TestWriteFloatTable_SchemaShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloatTable(&buf, FloatTable{Element: "gauss", Properties: []string{"s"}, Rows: 1, Data: []float32{1}}))

	d, err := NewDecoder(&buf)
	require.NoError(t, err)
	s, err := d.Schema()
	require.NoError(t, err)
	require.Equal(t, []header.Element{{
		Name: "gauss", Count: 1, Properties: []header.Property{header.Scalar("s", format.Float32)},
	}}, s.Elements)
}
