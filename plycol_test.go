package plycol

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/arloliu/plycol/codec"
	"github.com/arloliu/plycol/column"
	"github.com/arloliu/plycol/compress"
	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/format"
)

const triangleASCII = `ply
format ascii 1.0
comment single triangle
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

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Triangle(t *testing.T) {
	schema, store, err := Load(writeFile(t, "tri.ply", triangleASCII))
	require.NoError(t, err)
	require.Equal(t, format.ASCII, schema.Format)
	require.Equal(t, []string{"single triangle"}, schema.Comments)

	v, ok := store.Stack("vertex", "x", "y", "z")
	require.True(t, ok)
	require.Equal(t, []int{3, 3}, v.Shape())

	f, ok := store.Column("face", "vertex_index")
	require.True(t, ok)
	require.Equal(t, []int{1, 3}, f.Shape())
	require.Equal(t, []int32{0, 1, 2}, column.MustValues[int32](f))
}

func TestSave_BinaryRoundTrip(t *testing.T) {
	schema, store, err := Load(writeFile(t, "tri.ply", triangleASCII))
	require.NoError(t, err)

	for _, f := range []format.Format{format.ASCII, format.BinaryLittleEndian, format.BinaryBigEndian} {
		t.Run(f.String(), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.ply")
			require.NoError(t, Save(out, schema, store, f))

			again, reloaded, err := Load(out)
			require.NoError(t, err)
			require.Equal(t, f, again.Format)
			require.Equal(t, schema.Elements, again.Elements)
			require.Equal(t, schema.Comments, again.Comments)
			require.True(t, store.Equal(reloaded))
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.ply"))
	require.ErrorIs(t, err, errs.ErrFileNotFound)

	_, _, err = Load(t.TempDir())
	require.ErrorIs(t, err, errs.ErrFileNotFound, "a directory is not a file")

	_, err = LoadFloatTable(filepath.Join(t.TempDir(), "missing.ply"))
	require.ErrorIs(t, err, errs.ErrFileNotFound)
}

func TestSave_DirectoryNotFound(t *testing.T) {
	schema, store, err := Load(writeFile(t, "tri.ply", triangleASCII))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "missing")
	out := filepath.Join(dir, "out.ply")

	err = Save(out, schema, store, format.BinaryLittleEndian)
	require.ErrorIs(t, err, errs.ErrDirectoryNotFound)
	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr), "no file is created")
	_, statErr = os.Stat(dir)
	require.True(t, os.IsNotExist(statErr), "no directory is created")

	err = SaveFloatTable(out, codec.FloatTable{})
	require.ErrorIs(t, err, errs.ErrDirectoryNotFound)
}

func TestSave_MismatchLeavesExistingFile(t *testing.T) {
	schema, store, err := Load(writeFile(t, "tri.ply", triangleASCII))
	require.NoError(t, err)

	out := writeFile(t, "existing.ply", "keep me")
	broken := schema.Clone()
	broken.Elements[0].Count = 4

	err = Save(out, broken, store, format.ASCII)
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "keep me", string(data))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary file is left behind")
}

func TestSave_Overwrites(t *testing.T) {
	schema, store, err := Load(writeFile(t, "tri.ply", triangleASCII))
	require.NoError(t, err)

	out := writeFile(t, "existing.ply", "old content")
	require.NoError(t, Save(out, schema, store, format.BinaryLittleEndian))

	_, reloaded, err := Load(out)
	require.NoError(t, err)
	require.True(t, store.Equal(reloaded))
}

func TestSave_Compressed(t *testing.T) {
	schema, store, err := Load(writeFile(t, "tri.ply", triangleASCII))
	require.NoError(t, err)

	for _, ext := range []string{".zst", ".sz", ".lz4", ".gz"} {
		t.Run(ext, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "tri.ply"+ext)
			require.NoError(t, Save(out, schema, store, format.BinaryBigEndian))

			raw, err := os.ReadFile(out)
			require.NoError(t, err)
			require.Equal(t, compress.FromPath(out), compress.Detect(raw))

			_, reloaded, err := Load(out)
			require.NoError(t, err)
			require.True(t, store.Equal(reloaded))
		})
	}

	t.Run("explicit compression ignores extension", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "tri.ply")
		require.NoError(t, Save(out, schema, store, format.ASCII, WithCompression(format.CompressionZstd)))

		raw, err := os.ReadFile(out)
		require.NoError(t, err)
		require.Equal(t, format.CompressionZstd, compress.Detect(raw))

		_, reloaded, err := Load(out)
		require.NoError(t, err)
		require.True(t, store.Equal(reloaded))
	})
}

func TestWithCompression_Invalid(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, nil, nil, format.ASCII, WithCompression(format.CompressionType(99)))
	require.ErrorIs(t, err, errs.ErrUnsupportedCompression)
}

func TestReadWrite_Stream(t *testing.T) {
	schema, store, err := Read(bytes.NewReader([]byte(triangleASCII)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, schema, store, format.BinaryLittleEndian,
		WithCompression(format.CompressionGzip),
		WithEncoderOptions(codec.WithComments("converted")),
	))

	again, reloaded, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, []string{"single triangle", "converted"}, again.Comments)
	require.True(t, store.Equal(reloaded))
}

func TestSaveStore(t *testing.T) {
	el := column.NewElement("vertex", 2)
	require.NoError(t, el.Add("x", column.FromSlice([]float64{1.25, -3})))
	require.NoError(t, el.Add("indices", column.FromRows([][]uint32{{1}, {2, 3}})))
	store := column.NewStore()
	require.NoError(t, store.AddElement(el))

	out := filepath.Join(t.TempDir(), "store.ply")
	require.NoError(t, SaveStore(out, store, format.BinaryLittleEndian))

	_, _, err := Load(out)
	require.ErrorIs(t, err, errs.ErrIrregularList)

	schema, reloaded, err := Load(out, WithDecoderOptions(codec.WithRaggedLists()))
	require.NoError(t, err)
	require.True(t, store.Equal(reloaded))

	p, ok := schema.Elements[0].Property("indices")
	require.True(t, ok)
	require.Equal(t, format.Uint8, p.CountKind)
}

func TestLoad_TruncatedUsesFileSize(t *testing.T) {
	path := writeFile(t, "big.ply",
		"ply\nformat binary_little_endian 1.0\nelement vertex 100000000\nproperty double x\nend_header\n")

	_, _, err := Load(path)
	require.ErrorIs(t, err, errs.ErrTruncatedFile)
	require.Contains(t, err.Error(), path)
}

func TestRead_CompressedHugeCount(t *testing.T) {
	gz, err := compress.GetCodec(format.CompressionGzip)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := gz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("ply\nformat ascii 1.0\nelement vertex 2305843009213693952\nproperty double x\nend_header\n1.0\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, _, err = Read(&buf)
	require.ErrorIs(t, err, errs.ErrTruncatedFile)
}

func TestFloatTable_Files(t *testing.T) {
	table := codec.FloatTable{
		Properties: []string{"x", "y", "z", "scale_0"},
		Rows:       2,
		Data:       []float32{1, 2, 3, 0.1, 4, 5, 6, 0.2},
	}

	for _, name := range []string{"splat.ply", "splat.ply.zst"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveFloatTable(out, table))

			got, err := LoadFloatTable(out)
			require.NoError(t, err)
			require.Equal(t, table.Properties, got.Properties)
			require.Equal(t, table.Data, got.Data)
			require.Equal(t, "vertex", got.Element)

			schema, store, err := Load(out)
			require.NoError(t, err)
			require.Equal(t, format.BinaryLittleEndian, schema.Format)
			x, ok := store.Column("vertex", "x")
			require.True(t, ok)
			require.Equal(t, []float32{1, 4}, column.MustValues[float32](x))
		})
	}

	bad := table
	bad.Data = bad.Data[:3]
	require.ErrorIs(t, SaveFloatTable(filepath.Join(t.TempDir(), "bad.ply"), bad), errs.ErrSchemaMismatch)
}

func TestWithLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	path := writeFile(t, "tri.ply", triangleASCII)
	schema, store, err := Load(path, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, Save(filepath.Join(t.TempDir(), "o.ply"), schema, store, format.ASCII, WithLogger(logger)))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "loaded ply file", entries[0].Message)
	require.Equal(t, path, entries[0].ContextMap()["path"])
	require.Equal(t, "saved ply file", entries[1].Message)
}
