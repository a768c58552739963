// Package s3store uses an S3-compatible bucket directly as a content-addressed asset store.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/fulmenhq/otapublish/pkg/config"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/store"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

const statConcurrency = 16

// objectAPI is the part of *minio.Client the store needs
type objectAPI interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedPostPolicy(ctx context.Context, p *minio.PostPolicy) (*url.URL, map[string]string, error)
}

// Store implements store.AssetStore on a bucket
type Store struct {
	client     objectAPI
	bucket     string
	prefix     string
	assetLimit int
	policyTTL  time.Duration
	now        func() time.Time
}

var _ store.AssetStore = (*Store)(nil)

// New connects to the configured bucket
func New(cfg config.S3Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 store requires store.s3.endpoint and store.s3.bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(client objectAPI, cfg config.S3Config) *Store {
	ttl := cfg.PolicyTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		assetLimit: cfg.AssetLimit,
		policyTTL:  ttl,
		now:        time.Now,
	}
}

// ObjectName maps a storage key to its object name in the bucket
func (s *Store) ObjectName(storageKey string) string {
	if s.prefix == "" {
		return storageKey
	}
	return path.Join(s.prefix, storageKey)
}

// CheckExistence stats every key, a few at a time
func (s *Store) CheckExistence(ctx context.Context, storageKeys []string) ([]store.AssetStatus, error) {
	out := make([]store.AssetStatus, len(storageKeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)

	for i, key := range storageKeys {
		g.Go(func() error {
			status, err := s.stat(gctx, key)
			if err != nil {
				return err
			}
			out[i] = store.AssetStatus{StorageKey: key, Status: status}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) stat(ctx context.Context, key string) (store.Status, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.ObjectName(key), minio.StatObjectOptions{})
	if err == nil {
		return store.StatusExists, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == minio.NoSuchKey || resp.StatusCode == http.StatusNotFound {
		return store.StatusMissing, nil
	}
	return "", fmt.Errorf("failed to stat %s: %w", s.ObjectName(key), err)
}

// NegotiateUploads presigns one POST policy per request, pinned to the
// object name and content type
func (s *Store) NegotiateUploads(ctx context.Context, requests []store.UploadRequest) ([]store.UploadSpecification, error) {
	specs := make([]store.UploadSpecification, 0, len(requests))
	expires := s.now().UTC().Add(s.policyTTL)

	for _, r := range requests {
		if r.StorageKey == "" {
			return nil, errors.New("s3 store needs a storage key for every upload request")
		}
		policy := minio.NewPostPolicy()
		if err := policy.SetBucket(s.bucket); err != nil {
			return nil, err
		}
		if err := policy.SetKey(s.ObjectName(r.StorageKey)); err != nil {
			return nil, err
		}
		if err := policy.SetExpires(expires); err != nil {
			return nil, err
		}
		if err := policy.SetContentType(r.ContentType); err != nil {
			return nil, err
		}

		u, fields, err := s.client.PresignedPostPolicy(ctx, policy)
		if err != nil {
			return nil, fmt.Errorf("failed to presign upload for %s: %w", r.StorageKey, err)
		}
		specs = append(specs, store.UploadSpecification{URL: u.String(), Fields: fields})
	}

	logger.Trace("Presigned upload policies", logger.Int("count", len(specs)), logger.String("bucket", s.bucket))
	return specs, nil
}

// AssetLimit is fixed by configuration for a bucket-backed store
func (s *Store) AssetLimit(context.Context, string) (int, error) {
	return s.assetLimit, nil
}
