package s3blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Reader answers existence checks against the client's bucket.
type Reader struct {
	c *Client
}

func NewReader(c *Client) *Reader { return &Reader{c: c} }

func (r *Reader) Exists(ctx context.Context, path string) (bool, error) {
	_, err := r.c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.c.bucket),
		Key:    aws.String(path),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	var nk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nk) {
		return false, nil
	}
	return false, fmt.Errorf("s3blob: head %s: %w", path, err)
}

var _ domain.BlobReader = (*Reader)(nil)
