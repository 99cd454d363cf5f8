// Package storage opens plytool inputs and outputs by URI: local paths and
// file:// URIs, s3://bucket/key and gs://bucket/object.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/arloliu/plycol/errs"
	"github.com/arloliu/plycol/internal/config"
)

type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeS3   Scheme = "s3"
	SchemeGCS  Scheme = "gs"
)

// Location is a parsed URI. Key is the object key, or the local path for
// SchemeFile.
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
}

func (l Location) IsLocal() bool {
	return l.Scheme == SchemeFile
}

func (l Location) String() string {
	if l.IsLocal() {
		return l.Key
	}

	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Key
}

// ParseURI parses a local path or a file://, s3:// or gs:// URI.
func ParseURI(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New("empty location")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location %q: %w", uri, err)
	}

	switch Scheme(u.Scheme) {
	case SchemeFile:
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = u.Host + u.Path
		}
		if path == "" {
			return Location{}, fmt.Errorf("invalid location %q: missing path", uri)
		}

		return Location{Scheme: SchemeFile, Key: path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("invalid location %q: expected %s://bucket/key", uri, u.Scheme)
		}

		return Location{Scheme: Scheme(u.Scheme), Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("invalid location %q: unsupported scheme %q", uri, u.Scheme)
	}
}

// Client opens locations of every scheme. Remote clients are created on
// first use, so local-only runs never touch cloud credentials.
type Client struct {
	cfg    config.Storage
	logger *zap.Logger

	mu        sync.Mutex
	s3Client  *s3.Client
	gcsClient *gcs.Client
}

func New(cfg config.Storage, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{cfg: cfg, logger: logger}
}

// Open returns a reader of the object at loc and its size, -1 when unknown.
//
// Returns errs.ErrFileNotFound when a local path is missing or not a regular
// file.
func (c *Client) Open(ctx context.Context, loc Location) (io.ReadCloser, int64, error) {
	switch loc.Scheme {
	case SchemeFile:
		return openLocal(loc.Key)
	case SchemeS3:
		return c.openS3(ctx, loc)
	case SchemeGCS:
		return c.openGCS(ctx, loc)
	default:
		return nil, 0, fmt.Errorf("unsupported scheme %q", loc.Scheme)
	}
}

// Create returns a writer storing an object at loc. The object is complete
// only once Close returned nil.
//
// Returns errs.ErrDirectoryNotFound when the parent of a local path is
// missing.
func (c *Client) Create(ctx context.Context, loc Location) (io.WriteCloser, error) {
	switch loc.Scheme {
	case SchemeFile:
		return createLocal(loc.Key)
	case SchemeS3:
		return c.createS3(ctx, loc)
	case SchemeGCS:
		return c.createGCS(ctx, loc)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", loc.Scheme)
	}
}

// Put stores the bytes written by fn at loc. When fn fails the upload is
// cancelled, or the local file removed, so no partial object is left behind.
func (c *Client) Put(ctx context.Context, loc Location, fn func(w io.Writer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := c.Create(ctx, loc)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		cancel()
		if a, ok := w.(aborter); ok {
			a.abort(err)
		} else {
			_ = w.Close()
		}
		if loc.IsLocal() {
			_ = os.Remove(loc.Key)
		}

		return err
	}

	return w.Close()
}

// aborter is implemented by writers that can discard what was written so far.
type aborter interface {
	abort(err error)
}

// Close releases the remote clients created so far.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gcsClient != nil {
		err := c.gcsClient.Close()
		c.gcsClient = nil

		return err
	}

	return nil
}

func openLocal(path string) (io.ReadCloser, int64, error) {
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

func createLocal(path string) (io.WriteCloser, error) {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errs.ErrDirectoryNotFound, dir)
	}

	return os.Create(path)
}
