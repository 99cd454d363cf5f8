package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/endian"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
	"github.com/arloliu/plycol/header"
	"github.com/stretchr/testify/require"
)

const triangleASCII = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar int vertex_index
end_header
0 0 0
1 0 0
0 1 0
3 0 1 2
`

func decode(t *testing.T, data []byte, opts ...DecoderOption) (*header.Schema, *column.Store, error) {
	t.Helper()
	d, err := NewDecoder(bytes.NewReader(data), opts...)
	require.NoError(t, err)

	return d.Decode()
}

func encode(t *testing.T, schema *header.Schema, store *column.Store, opts ...EncoderOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, opts...)
	require.NoError(t, err)
	require.NoError(t, e.Encode(schema, store))

	return buf.Bytes()
}

func TestDecode_TriangleScenario(t *testing.T) {
	schema, store, err := decode(t, []byte(triangleASCII))
	require.NoError(t, err)
	require.Equal(t, format.ASCII, schema.Format)

	vertices, ok := store.Stack("vertex", "x", "y", "z")
	require.True(t, ok)
	require.Equal(t, []int{3, 3}, vertices.Shape())
	require.Equal(t, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, column.MustValues[float32](vertices))

	faces, ok := store.Column("face", "vertex_index")
	require.True(t, ok)
	require.Equal(t, []int{1, 3}, faces.Shape())
	require.Equal(t, []int32{0, 1, 2}, column.MustValues[int32](faces))

	_, ok = store.Stack("vertex", "nx", "ny", "nz")
	require.False(t, ok, "missing normals are absent, not an error")
}

func TestRoundTrip_AllFormats(t *testing.T) {
	schema, store, err := decode(t, []byte(triangleASCII))
	require.NoError(t, err)

	for _, f := range []format.Format{format.ASCII, format.BinaryLittleEndian, format.BinaryBigEndian} {
		t.Run(f.String(), func(t *testing.T) {
			data := encode(t, schema, store, WithFormat(f))
			require.True(t, bytes.HasPrefix(data, []byte("ply\nformat "+f.String()+" 1.0\n")))

			again, reloaded, err := decode(t, data)
			require.NoError(t, err)
			require.Equal(t, f, again.Format)
			require.Equal(t, schema.Elements, again.Elements, "element and property order is preserved")
			require.True(t, store.Equal(reloaded))
		})
	}
}

// mixedStore covers every kind, including extreme values, plus a fixed and a
// ragged list.
func mixedStore(t *testing.T) (*header.Schema, *column.Store) {
	t.Helper()

	points := column.NewElement("point", 3)
	add := func(name string, c *column.Column) {
		require.NoError(t, points.Add(name, c))
	}
	add("i8", column.FromSlice([]int8{math.MinInt8, 0, math.MaxInt8}))
	add("u8", column.FromSlice([]uint8{0, 1, math.MaxUint8}))
	add("i16", column.FromSlice([]int16{math.MinInt16, -1, math.MaxInt16}))
	add("u16", column.FromSlice([]uint16{0, 513, math.MaxUint16}))
	add("i32", column.FromSlice([]int32{math.MinInt32, -2, math.MaxInt32}))
	add("u32", column.FromSlice([]uint32{0, 70000, math.MaxUint32}))
	add("i64", column.FromSlice([]int64{math.MinInt64, -3, math.MaxInt64}))
	add("u64", column.FromSlice([]uint64{0, 1 << 40, math.MaxUint64}))
	add("f32", column.FromSlice([]float32{-0.1, math.SmallestNonzeroFloat32, math.MaxFloat32}))
	add("f64", column.FromSlice([]float64{math.Pi, -math.SmallestNonzeroFloat64, 1e300}))
	uv, err := column.FromFixedList([]float32{0.5, 0.25, 1, 0, 0.125, 0.75}, 2)
	require.NoError(t, err)
	add("uv", uv)
	add("ring", column.FromRows([][]uint16{{1, 2, 3}, {}, {4}}))

	store := column.NewStore()
	require.NoError(t, store.AddElement(points))

	schema, err := header.FromStore(store, format.BinaryLittleEndian)
	require.NoError(t, err)

	return schema, store
}

func TestRoundTrip_TypeFidelity(t *testing.T) {
	schema, store := mixedStore(t)

	for _, f := range []format.Format{format.ASCII, format.BinaryLittleEndian, format.BinaryBigEndian} {
		t.Run(f.String(), func(t *testing.T) {
			data := encode(t, schema, store, WithFormat(f))

			_, reloaded, err := decode(t, data, WithRaggedProperty("point", "ring"))
			require.NoError(t, err)
			require.True(t, store.Equal(reloaded))

			c, ok := reloaded.Column("point", "u16")
			require.True(t, ok)
			require.Equal(t, format.Uint16, c.Kind())
			_, ok = column.Values[int32](c)
			require.False(t, ok, "no implicit widening")

			ring, ok := reloaded.Column("point", "ring")
			require.True(t, ok)
			require.True(t, ring.IsRagged())
			row, ok := column.Row[uint16](ring, 0)
			require.True(t, ok)
			require.Equal(t, []uint16{1, 2, 3}, row)
		})
	}
}

func TestDecode_EndiannessAgrees(t *testing.T) {
	const head = "ply\nformat %s 1.0\nelement vertex 2\nproperty short a\nproperty double b\n" +
		"element face 1\nproperty list ushort uint v\nend_header\n"

	build := func(f string, order endian.EndianEngine) []byte {
		var b []byte
		b = append(b, strings.Replace(head, "%s", f, 1)...)
		for i, a := range []int16{-2, 300} {
			b = order.AppendUint16(b, uint16(a))
			b = order.AppendUint64(b, math.Float64bits(float64(i)+0.5))
		}
		b = order.AppendUint16(b, 3)
		for _, v := range []uint32{7, 1 << 20, math.MaxUint32} {
			b = order.AppendUint32(b, v)
		}

		return b
	}

	_, little, err := decode(t, build("binary_little_endian", endian.GetLittleEndianEngine()))
	require.NoError(t, err)
	_, big, err := decode(t, build("binary_big_endian", endian.GetBigEndianEngine()))
	require.NoError(t, err)

	require.True(t, little.Equal(big))

	a, _ := big.Column("vertex", "a")
	require.Equal(t, []int16{-2, 300}, column.MustValues[int16](a))
	b, _ := big.Column("vertex", "b")
	require.Equal(t, []float64{0.5, 1.5}, column.MustValues[float64](b))
	v, _ := big.Column("face", "v")
	require.Equal(t, []uint32{7, 1 << 20, math.MaxUint32}, column.MustValues[uint32](v))
}

func TestDecode_LargeScalarElement(t *testing.T) {
	const rows = 20000 // spans several pooled chunks

	x := make([]float32, rows)
	id := make([]uint32, rows)
	for i := range x {
		x[i] = float32(i) * 0.5
		id[i] = uint32(rows - i)
	}

	el := column.NewElement("vertex", rows)
	require.NoError(t, el.Add("x", column.FromSlice(x)))
	require.NoError(t, el.Add("id", column.FromSlice(id)))
	store := column.NewStore()
	require.NoError(t, store.AddElement(el))

	for _, f := range []format.Format{format.BinaryLittleEndian, format.BinaryBigEndian} {
		schema, err := header.FromStore(store, f)
		require.NoError(t, err)

		data := encode(t, schema, store)
		_, reloaded, err := decode(t, data, WithSizeHint(int64(len(data))))
		require.NoError(t, err)
		require.True(t, store.Equal(reloaded), f.String())
	}
}

func TestDecode_IrregularList(t *testing.T) {
	data := []byte("ply\nformat ascii 1.0\nelement face 2\nproperty list uchar int vertex_index\nend_header\n" +
		"3 0 1 2\n4 0 1 2 3\n")

	_, _, err := decode(t, data)
	require.ErrorIs(t, err, errs.ErrIrregularList)
	require.Contains(t, err.Error(), `"vertex_index"`)

	_, store, err := decode(t, data, WithRaggedLists())
	require.NoError(t, err)
	c, ok := store.Column("face", "vertex_index")
	require.True(t, ok)
	require.True(t, c.IsRagged())
	require.Equal(t, []int64{0, 3, 7}, c.Offsets())
	require.Equal(t, []int32{0, 1, 2, 0, 1, 2, 3}, column.MustValues[int32](c))

	binaryData := encode(t, mustSchema(t, data), store, WithFormat(format.BinaryBigEndian))
	_, _, err = decode(t, binaryData)
	require.ErrorIs(t, err, errs.ErrIrregularList)

	_, again, err := decode(t, binaryData, WithRaggedProperty("face", "vertex_index"))
	require.NoError(t, err)
	require.True(t, store.Equal(again))
}

func mustSchema(t *testing.T, data []byte) *header.Schema {
	t.Helper()
	d, err := NewDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	s, err := d.Schema()
	require.NoError(t, err)

	return s
}

func TestDecode_EmptyElements(t *testing.T) {
	data := []byte("ply\nformat binary_little_endian 1.0\nelement vertex 0\nproperty float x\n" +
		"element face 0\nproperty list uchar int vertex_index\nend_header\n")

	_, store, err := decode(t, data)
	require.NoError(t, err)

	x, ok := store.Column("vertex", "x")
	require.True(t, ok)
	require.Equal(t, 0, x.Rows())

	f, ok := store.Column("face", "vertex_index")
	require.True(t, ok)
	require.Equal(t, []int{0, 0}, f.Shape())
}

func TestDecode_Errors(t *testing.T) {
	le := func(parts ...[]byte) []byte { return bytes.Join(parts, nil) }
	u32 := func(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

	const vertexHead = "ply\nformat binary_little_endian 1.0\nelement vertex 2\nproperty uint a\nend_header\n"
	const faceHead = "ply\nformat binary_little_endian 1.0\nelement face 1\nproperty list char int v\nend_header\n"
	const asciiHead = "ply\nformat ascii 1.0\nelement vertex 2\nproperty int a\nproperty list uchar float l\nend_header\n"

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"binary truncated", le([]byte(vertexHead), u32(1)), errs.ErrTruncatedFile},
		{"binary empty body", []byte(vertexHead), errs.ErrTruncatedFile},
		{"negative list count", le([]byte(faceHead), []byte{0xFF}), errs.ErrMalformedRecord},
		{"list values truncated", le([]byte(faceHead), []byte{3}, u32(1)), errs.ErrTruncatedFile},
		{"ascii missing record", []byte(asciiHead + "1 0\n"), errs.ErrTruncatedFile},
		{"ascii bad token", []byte(asciiHead + "1 0\nx 0\n"), errs.ErrMalformedRecord},
		{"ascii out of range", []byte(asciiHead + "1 0\n3000000000 0\n"), errs.ErrMalformedRecord},
		{"ascii float in int", []byte(asciiHead + "1 0\n1.5 0\n"), errs.ErrMalformedRecord},
		{"ascii missing list values", []byte(asciiHead + "1 2 0.5\n2 0\n"), errs.ErrMalformedRecord},
		{"ascii negative count", []byte(asciiHead + "1 -1\n2 0\n"), errs.ErrMalformedRecord},
		{"ascii trailing token", []byte(asciiHead + "1 0 7\n2 0\n"), errs.ErrMalformedRecord},
		{"ascii missing scalar", []byte(asciiHead + "\n1 0\n2\n"), errs.ErrMalformedRecord},
		{"header", []byte("ply\nformat ascii 1.0\nelement vertex 1\n"), errs.ErrTruncatedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, store, err := decode(t, tt.data)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, schema)
			require.Nil(t, store)
		})
	}
}

func TestDecode_MalformedNamesRecord(t *testing.T) {
	data := []byte("ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nend_header\n1.0\nabc\n")
	_, _, err := decode(t, data)
	require.ErrorIs(t, err, errs.ErrMalformedRecord)
	require.Contains(t, err.Error(), `element "vertex" property "x" record 1`)
	require.Contains(t, err.Error(), `"abc"`)
}

func TestDecode_ASCIIBlankLinesAndCRLF(t *testing.T) {
	data := strings.ReplaceAll(triangleASCII, "\n", "\r\n")
	data = strings.Replace(data, "1 0 0\r\n", "1 0 0\r\n\r\n   \r\n", 1)

	_, store, err := decode(t, []byte(data))
	require.NoError(t, err)

	x, _ := store.Column("vertex", "x")
	require.Equal(t, []float32{0, 1, 0}, column.MustValues[float32](x))
}

func TestDecode_SizeHint(t *testing.T) {
	head := "ply\nformat binary_little_endian 1.0\nelement vertex 1000000\nproperty double x\nend_header\n"
	data := []byte(head + "short")

	_, _, err := decode(t, data, WithSizeHint(int64(len(data))))
	require.ErrorIs(t, err, errs.ErrTruncatedFile)

	list := []byte("ply\nformat binary_little_endian 1.0\nelement face 1\nproperty list uint double v\nend_header\n")
	list = binary.LittleEndian.AppendUint32(list, 1<<30)
	_, _, err = decode(t, list, WithSizeHint(int64(len(list))), WithRaggedLists())
	require.ErrorIs(t, err, errs.ErrTruncatedFile)

	_, err = NewDecoder(bytes.NewReader(nil), WithSizeHint(-1))
	require.ErrorIs(t, err, errs.ErrTruncatedFile)
}

func TestDecode_HugeCounts(t *testing.T) {
	const (
		count61 = "2305843009213693952" // 1<<61, count*8 wraps to 0
		count40 = "1099511627776"
	)
	le := func(head string, values ...uint32) []byte {
		data := []byte(head)
		for _, v := range values {
			data = binary.LittleEndian.AppendUint32(data, v)
		}

		return data
	}

	binaryScalar := "ply\nformat binary_little_endian 1.0\nelement vertex " + count61 + "\nproperty double x\nend_header\n"
	binaryRows := "ply\nformat binary_little_endian 1.0\nelement vertex " + count40 + "\nproperty float x\nproperty float y\nend_header\n"
	asciiScalar := "ply\nformat ascii 1.0\nelement vertex " + count61 + "\nproperty double x\nend_header\n"
	asciiMany := "ply\nformat ascii 1.0\nelement vertex 10000000000\nproperty float x\nproperty float y\nend_header\n"
	asciiList := "ply\nformat ascii 1.0\nelement face " + count40 + "\nproperty list uchar int v\nend_header\n"
	streamList := "ply\nformat binary_little_endian 1.0\nelement face 4294967296\nproperty list uint int vi\nend_header\n"
	streamMixed := "ply\nformat binary_little_endian 1.0\nelement face " + count40 + "\nproperty uint id\nproperty list uint int vi\nend_header\n"

	tests := []struct {
		name   string
		data   []byte
		hinted bool
		opts   []DecoderOption
	}{
		{"binary scalar with size hint", []byte(binaryScalar), true, nil},
		{"binary scalar streamed", le(binaryScalar, 1, 2, 3, 4), false, nil},
		{"binary rows streamed", le(binaryRows, 1, 2, 3), false, nil},
		{"ascii scalar with size hint", []byte(asciiScalar + "1.0"), true, nil},
		{"ascii scalar streamed", []byte(asciiScalar + "1.0"), false, nil},
		{"ascii records beyond size hint", []byte(asciiMany + "1 2\n3 4\n"), true, nil},
		{"ascii records streamed", []byte(asciiMany + "1 2\n3 4\n"), false, nil},
		{"ascii fixed lists streamed", []byte(asciiList + "3 0 1 2\n"), false, nil},
		{"ascii ragged lists streamed", []byte(asciiList + "3 0 1 2\n"), false, []DecoderOption{WithRaggedLists()}},
		{"list of 1<<30 values streamed", le(streamList, 1<<30, 1, 2), false, nil},
		{"ragged list of 1<<30 values streamed", le(streamList, 1<<30, 1, 2), false, []DecoderOption{WithRaggedLists()}},
		{"scalars and lists streamed", le(streamMixed, 7, 2, 1, 2, 8), false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			if tt.hinted {
				opts = append(opts, WithSizeHint(int64(len(tt.data))))
			}

			var (
				schema *header.Schema
				store  *column.Store
				err    error
			)
			require.NotPanics(t, func() {
				schema, store, err = decode(t, tt.data, opts...)
			})
			require.ErrorIs(t, err, errs.ErrTruncatedFile)
			require.Nil(t, schema)
			require.Nil(t, store)
		})
	}
}

func TestDecode_StreamedMatchesHinted(t *testing.T) {
	ragged := "ply\nformat binary_little_endian 1.0\nelement face 3\nproperty int id\n" +
		"property list uchar float v\nend_header\n"
	var data []byte
	data = append(data, ragged...)
	for r, n := range []int{2, 0, 3} {
		data = binary.LittleEndian.AppendUint32(data, uint32(r))
		data = append(data, byte(n))
		for i := range n {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(float32(r*10+i)))
		}
	}

	_, hinted, err := decode(t, data, WithSizeHint(int64(len(data))), WithRaggedLists())
	require.NoError(t, err)
	_, streamed, err := decode(t, data, WithRaggedLists())
	require.NoError(t, err)
	require.True(t, hinted.Equal(streamed))

	v, ok := streamed.Column("face", "v")
	require.True(t, ok)
	require.Equal(t, []int64{0, 2, 2, 5}, v.Offsets())
	require.Equal(t, []float32{0, 1, 20, 21, 22}, column.MustValues[float32](v))
}

func TestDecode_NaNRoundTrip(t *testing.T) {
	payload := math.Float64frombits(0xFFF0_0000_0000_0123)
	require.True(t, math.IsNaN(payload))

	el := column.NewElement("vertex", 2)
	require.NoError(t, el.Add("x", column.FromSlice([]float64{payload, 1.5})))
	store := column.NewStore()
	require.NoError(t, store.AddElement(el))

	t.Run("binary keeps payload", func(t *testing.T) {
		schema, err := header.FromStore(store, format.BinaryBigEndian)
		require.NoError(t, err)
		_, got, err := decode(t, encode(t, schema, store))
		require.NoError(t, err)
		x, _ := got.Column("vertex", "x")
		require.Equal(t, uint64(0xFFF0_0000_0000_0123), math.Float64bits(column.MustValues[float64](x)[0]))
	})

	t.Run("ascii keeps NaN only", func(t *testing.T) {
		schema, err := header.FromStore(store, format.ASCII)
		require.NoError(t, err)
		data := encode(t, schema, store)
		require.Contains(t, string(data), "end_header\nNaN\n1.5\n")

		_, got, err := decode(t, data)
		require.NoError(t, err)
		x, ok := got.Column("vertex", "x")
		require.True(t, ok)
		v := column.MustValues[float64](x)
		require.True(t, math.IsNaN(v[0]))
		require.Equal(t, 1.5, v[1])
	})
}

func TestDecoder_SingleUse(t *testing.T) {
	d, err := NewDecoder(strings.NewReader(triangleASCII))
	require.NoError(t, err)

	_, _, err = d.Decode()
	require.NoError(t, err)
	_, _, err = d.Decode()
	require.Error(t, err)
}

func TestEncode_ASCIIFormatting(t *testing.T) {
	el := column.NewElement("vertex", 2)
	require.NoError(t, el.Add("x", column.FromSlice([]float32{0.1, -2})))
	require.NoError(t, el.Add("n", column.FromSlice([]int64{-9007199254740993, 4})))
	faces, err := column.FromFixedList([]uint8{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	require.NoError(t, el.Add("pair", faces))
	store := column.NewStore()
	require.NoError(t, store.AddElement(el))

	schema, err := header.FromStore(store, format.ASCII)
	require.NoError(t, err)

	data := encode(t, schema, store, WithComments("hello"), WithObjInfo("num_cols 2"))
	require.Equal(t, `ply
format ascii 1.0
comment hello
obj_info num_cols 2
element vertex 2
property float x
property int64 n
property list uchar uchar pair
end_header
0.1 -9007199254740993 2 1 2
-2 4 2 3 4
`, string(data))
}

func TestEncode_SchemaMismatch(t *testing.T) {
	schema, store, err := decode(t, []byte(triangleASCII))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *header.Schema)
	}{
		{"missing element", func(s *header.Schema) { s.Elements[0].Name = "point" }},
		{"missing property", func(s *header.Schema) { s.Elements[0].Properties[0].Name = "w" }},
		{"count", func(s *header.Schema) { s.Elements[0].Count = 4 }},
		{"kind", func(s *header.Schema) { s.Elements[0].Properties[0].Kind = format.Float64 }},
		{"scalar declared as list", func(s *header.Schema) {
			s.Elements[0].Properties[0] = header.List("x", format.Uint8, format.Float32)
		}},
		{"list declared as scalar", func(s *header.Schema) {
			s.Elements[1].Properties[0] = header.Scalar("vertex_index", format.Int32)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schema.Clone()
			tt.mutate(s)

			var buf bytes.Buffer
			e, err := NewEncoder(&buf)
			require.NoError(t, err)
			err = e.Encode(s, store)
			require.ErrorIs(t, err, errs.ErrSchemaMismatch)
			require.Zero(t, buf.Len(), "nothing is written on mismatch")
		})
	}

	t.Run("list too long for count kind", func(t *testing.T) {
		el := column.NewElement("face", 1)
		require.NoError(t, el.Add("v", column.FromRows([][]int32{make([]int32, 256)})))
		s := column.NewStore()
		require.NoError(t, s.AddElement(el))

		sch := &header.Schema{Format: format.ASCII, Elements: []header.Element{{
			Name: "face", Count: 1, Properties: []header.Property{header.List("v", format.Uint8, format.Int32)},
		}}}
		_, err := Check(sch, s)
		require.ErrorIs(t, err, errs.ErrSchemaMismatch)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := Check(schema, nil)
		require.ErrorIs(t, err, errs.ErrSchemaMismatch)
	})
}

func TestEncoder_InvalidFormat(t *testing.T) {
	_, err := NewEncoder(&bytes.Buffer{}, WithFormat(format.Format(9)))
	require.ErrorIs(t, err, errs.ErrInvalidFormat)
}

func TestEncode_IgnoresUndeclared(t *testing.T) {
	schema, store, err := decode(t, []byte(triangleASCII))
	require.NoError(t, err)

	s := schema.Clone()
	s.Elements = s.Elements[:1]
	s.Elements[0].Properties = s.Elements[0].Properties[:2]

	_, reloaded, err := decode(t, encode(t, s, store))
	require.NoError(t, err)
	require.Equal(t, []string{"vertex"}, reloaded.ElementNames())
	el, _ := reloaded.Element("vertex")
	require.Equal(t, []string{"x", "y"}, el.DeclaredNames())
}
