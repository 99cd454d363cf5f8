package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

func (c *Client) s3Conn(ctx context.Context) (*s3.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.s3Client != nil {
		return c.s3Client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if c.cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.cfg.S3.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c.s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.cfg.S3.Endpoint)
		}
		o.UsePathStyle = c.cfg.S3.UsePathStyle
	})

	return c.s3Client, nil
}

func (c *Client) openS3(ctx context.Context, loc Location) (io.ReadCloser, int64, error) {
	client, err := c.s3Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", loc, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	c.logger.Debug("opened s3 object", zap.Stringer("location", loc), zap.Int64("size", size))

	return out.Body, size, nil
}

// s3Writer streams into a multipart upload through a pipe. The upload runs
// in its own goroutine and Close waits for it.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (c *Client) createS3(ctx context.Context, loc Location) (io.WriteCloser, error) {
	client, err := c.s3Conn(ctx)
	if err != nil {
		return nil, err
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if c.cfg.S3.PartSize >= manager.MinUploadPartSize {
			u.PartSize = c.cfg.S3.PartSize
		}
		if c.cfg.S3.Concurrency > 0 {
			u.Concurrency = c.cfg.S3.Concurrency
		}
	})

	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(loc.Bucket),
			Key:         aws.String(loc.Key),
			Body:        pr,
			ContentType: aws.String("application/octet-stream"),
		})
		if err != nil {
			err = fmt.Errorf("upload %s: %w", loc, err)
		}
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}

	return <-w.done
}

// abort fails the pending upload with err; the uploader then cancels the
// multipart upload instead of completing it.
func (w *s3Writer) abort(err error) {
	_ = w.pw.CloseWithError(err)
	<-w.done
}
