// Package compress provides the streaming containers that PLY files can be
// stored in.
//
// PLY itself has no compression; large point clouds are commonly shipped as
// "scan.ply.zst" or "scan.ply.gz". This package wraps a whole file stream:
//
//	codec, _ := compress.GetCodec(format.CompressionZstd)
//	w, err := codec.NewWriter(file)
//	if err != nil {
//	    return err
//	}
//	// write the PLY stream to w
//	if err := w.Close(); err != nil { // completes the container
//	    return err
//	}
//
// # Supported Containers
//
//   - None: plain PLY
//   - Zstd: best ratio, moderate speed (klauspost/compress, or libzstd with -tags gozstd)
//   - S2: fast, moderate ratio; Snappy framed streams are read as well
//   - LZ4: LZ4 frame format, fastest decompression
//   - Gzip: the most widely readable
//
// # Detection
//
// Readers detect the container from its magic bytes, so a compressed file
// loads regardless of its name:
//
//	rc, ct, err := compress.NewReader(file)
//
// Writers choose the container explicitly or from the file extension with
// FromPath (.zst, .sz, .lz4, .gz).
//
// # Thread Safety
//
// Codecs are stateless values that can be shared across goroutines. The
// readers and writers they return are not safe for concurrent use.
package compress
