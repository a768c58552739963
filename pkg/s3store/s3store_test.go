package s3store

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/fulmenhq/otapublish/pkg/config"
	"github.com/fulmenhq/otapublish/pkg/store"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string]bool
	statErr  error
	policies []*minio.PostPolicy
}

func (f *fakeObjects) StatObject(_ context.Context, _, name string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statErr != nil {
		return minio.ObjectInfo{}, f.statErr
	}
	if f.objects[name] {
		return minio.ObjectInfo{Key: name}, nil
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: minio.NoSuchKey, StatusCode: http.StatusNotFound}
}

func (f *fakeObjects) PresignedPostPolicy(_ context.Context, p *minio.PostPolicy) (*url.URL, map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies = append(f.policies, p)
	u, _ := url.Parse("https://bucket.s3.test/")
	return u, map[string]string{"policy": "signed", "x-amz-signature": "sig"}, nil
}

func testConfig() config.S3Config {
	cfg := config.Default().Store.S3
	cfg.Endpoint = "s3.test"
	cfg.Bucket = "updates"
	return cfg
}

func TestObjectName(t *testing.T) {
	s := newWithClient(&fakeObjects{}, testConfig())
	assert.Equal(t, "assets/abc", s.ObjectName("abc"))

	cfg := testConfig()
	cfg.Prefix = ""
	assert.Equal(t, "abc", newWithClient(&fakeObjects{}, cfg).ObjectName("abc"))
}

func TestCheckExistence(t *testing.T) {
	fake := &fakeObjects{objects: map[string]bool{"assets/k2": true}}
	s := newWithClient(fake, testConfig())

	statuses, err := s.CheckExistence(context.Background(), []string{"k1", "k2", "k3"})
	require.NoError(t, err)
	assert.Equal(t, []store.AssetStatus{
		{StorageKey: "k1", Status: store.StatusMissing},
		{StorageKey: "k2", Status: store.StatusExists},
		{StorageKey: "k3", Status: store.StatusMissing},
	}, statuses)
}

func TestCheckExistence_AccessDenied(t *testing.T) {
	fake := &fakeObjects{statErr: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}}
	s := newWithClient(fake, testConfig())

	_, err := s.CheckExistence(context.Background(), []string{"k1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assets/k1")
}

func TestNegotiateUploads(t *testing.T) {
	fake := &fakeObjects{}
	s := newWithClient(fake, testConfig())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	specs, err := s.NegotiateUploads(context.Background(), []store.UploadRequest{
		{StorageKey: "k1", ContentType: "image/png"},
		{StorageKey: "k2", ContentType: "application/javascript"},
	})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "https://bucket.s3.test/", specs[0].URL)
	assert.Equal(t, "signed", specs[0].Fields["policy"])
	require.Len(t, fake.policies, 2)
	assert.Contains(t, fake.policies[0].String(), "assets/k1")
	assert.Contains(t, fake.policies[1].String(), "application/javascript")
}

func TestNegotiateUploads_RequiresStorageKey(t *testing.T) {
	s := newWithClient(&fakeObjects{}, testConfig())
	_, err := s.NegotiateUploads(context.Background(), []store.UploadRequest{{ContentType: "image/png"}})
	require.Error(t, err)
}

func TestAssetLimit(t *testing.T) {
	s := newWithClient(&fakeObjects{}, testConfig())
	limit, err := s.AssetLimit(context.Background(), "any")
	require.NoError(t, err)
	assert.Equal(t, 2000, limit)
}

func TestNew(t *testing.T) {
	_, err := New(config.S3Config{})
	require.Error(t, err)

	s, err := New(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "updates", s.bucket)
}
