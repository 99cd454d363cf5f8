package storage

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func (c *Client) gcsConn(ctx context.Context) (*gcs.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gcsClient != nil {
		return c.gcsClient, nil
	}

	var opts []option.ClientOption
	if c.cfg.GCS.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.cfg.GCS.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	c.gcsClient = client

	return client, nil
}

func (c *Client) openGCS(ctx context.Context, loc Location) (io.ReadCloser, int64, error) {
	client, err := c.gcsConn(ctx)
	if err != nil {
		return nil, 0, err
	}

	r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", loc, err)
	}
	c.logger.Debug("opened gcs object", zap.Stringer("location", loc), zap.Int64("size", r.Attrs.Size))

	return r, r.Attrs.Size, nil
}

func (c *Client) createGCS(ctx context.Context, loc Location) (io.WriteCloser, error) {
	client, err := c.gcsConn(ctx)
	if err != nil {
		return nil, err
	}

	w := client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	return w, nil
}
