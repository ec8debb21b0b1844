package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// BucketOptions locate a COS bucket.
type BucketOptions struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // defaults to myqcloud.com
	Scheme    string // defaults to https
}

// BucketStore keeps artifacts in a Tencent Cloud COS bucket.
type BucketStore struct {
	client *cos.Client
	base   *url.URL
}

// NewBucketStore builds a signed client for the bucket. Nothing is sent
// until the first request.
func NewBucketStore(opts BucketOptions) (*BucketStore, error) {
	if opts.Bucket == "" || opts.Region == "" {
		return nil, fmt.Errorf("bucket and region are required for COS storage")
	}
	if opts.SecretID == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required for COS storage")
	}
	if opts.Domain == "" {
		opts.Domain = "myqcloud.com"
	}
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}

	base, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", opts.Scheme, opts.Bucket, opts.Region, opts.Domain))
	if err != nil {
		return nil, fmt.Errorf("invalid bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: base}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  opts.SecretID,
			SecretKey: opts.SecretKey,
		},
	})
	return &BucketStore{client: client, base: base}, nil
}

// Put uploads r to key with the given content type.
func (s *BucketStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	var opt *cos.ObjectPutOptions
	if contentType != "" {
		opt = &cos.ObjectPutOptions{
			ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType},
		}
	}
	if _, err := s.client.Object.Put(ctx, key, r, opt); err != nil {
		return fmt.Errorf("COS put %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *BucketStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("COS head %s: %w", key, err)
	}
	return ok, nil
}

// URL returns the object URL for key.
func (s *BucketStore) URL(key string) string {
	return s.base.String() + "/" + strings.TrimPrefix(key, "/")
}
