package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/store"
)

// fakeStore is an in-memory AssetStore. Uploaded keys become visible after
// visibleAfter existence checks.
type fakeStore struct {
	mu           sync.Mutex
	present      map[string]bool
	settling     map[string]int
	visibleAfter int
	limit        int
	shortBy      int
	checkErr     error

	checks  int
	batches []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		present:  map[string]bool{},
		settling: map[string]int{},
		limit:    1000,
	}
}

func (s *fakeStore) CheckExistence(_ context.Context, keys []string) ([]store.AssetStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if s.checkErr != nil {
		return nil, s.checkErr
	}
	for key, left := range s.settling {
		left--
		if left <= 0 {
			s.present[key] = true
			delete(s.settling, key)
		} else {
			s.settling[key] = left
		}
	}
	out := make([]store.AssetStatus, 0, len(keys))
	for _, k := range keys {
		status := store.StatusMissing
		if s.present[k] {
			status = store.StatusExists
		}
		out = append(out, store.AssetStatus{StorageKey: k, Status: status})
	}
	return out, nil
}

func (s *fakeStore) NegotiateUploads(_ context.Context, reqs []store.UploadRequest) ([]store.UploadSpecification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, len(reqs))
	n := len(reqs) - s.shortBy
	if n < 0 {
		n = 0
	}
	specs := make([]store.UploadSpecification, 0, n)
	for _, r := range reqs[:n] {
		specs = append(specs, store.UploadSpecification{
			URL:    "https://upload.test/",
			Fields: map[string]string{"key": r.StorageKey, "Content-Type": r.ContentType},
		})
	}
	return specs, nil
}

func (s *fakeStore) AssetLimit(context.Context, string) (int, error) {
	return s.limit, nil
}

func (s *fakeStore) markUploaded(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visibleAfter <= 0 {
		s.present[key] = true
		return
	}
	s.settling[key] = s.visibleAfter
}

type fakeTransport struct {
	store  *fakeStore
	failOn map[string]error

	mu   sync.Mutex
	sent map[string]string
}

func newFakeTransport(s *fakeStore) *fakeTransport {
	return &fakeTransport{store: s, failOn: map[string]error{}, sent: map[string]string{}}
}

func (t *fakeTransport) Upload(_ context.Context, path string, spec store.UploadSpecification) error {
	if err, ok := t.failOn[filepath.Base(path)]; ok {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	t.mu.Lock()
	t.sent[path] = spec.Fields["key"]
	t.mu.Unlock()
	t.store.markUploaded(spec.Fields["key"])
	return nil
}

func (t *fakeTransport) uploads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

// delayRecorder replaces time.After: it records each delay and fires at once.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type progressCall struct {
	total, missing int
}

type progressRecorder struct {
	mu    sync.Mutex
	calls []progressCall
}

func (r *progressRecorder) record(total, missing int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, progressCall{total, missing})
}

func newTestPublisher(s *fakeStore, t *fakeTransport, opts Options) (*Publisher, *delayRecorder) {
	p := NewPublisher(s, t, opts)
	rec := &delayRecorder{}
	p.after = rec.after
	return p, rec
}

func writeAsset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// sharedIconBundle has android and ios bundles that both use the same icon.
func sharedIconBundle(t *testing.T) bundle.CollectedAssets {
	t.Helper()
	dir := t.TempDir()
	icon := writeAsset(t, dir, "icon", "png-bytes")
	iconAsset := bundle.RawAsset{
		Path:          icon,
		ContentType:   "image/png",
		FileExtension: ".png",
		OriginalPath:  "assets/icon.png",
	}
	return bundle.CollectedAssets{
		{
			Platform:    bundle.Android,
			LaunchAsset: bundle.RawAsset{Path: writeAsset(t, dir, "android.bundle", "android js"), ContentType: bundle.LaunchAssetContentType, FileExtension: ".bundle"},
			Assets:      []bundle.RawAsset{iconAsset},
		},
		{
			Platform:    bundle.IOS,
			LaunchAsset: bundle.RawAsset{Path: writeAsset(t, dir, "ios.bundle", "ios js"), ContentType: bundle.LaunchAssetContentType, FileExtension: ".bundle"},
			Assets:      []bundle.RawAsset{iconAsset},
		},
	}
}

// manyAssetBundle has one platform with n distinct assets besides the bundle.
func manyAssetBundle(t *testing.T, n int) bundle.CollectedAssets {
	t.Helper()
	dir := t.TempDir()
	assets := make([]bundle.RawAsset, 0, n)
	for i := 0; i < n; i++ {
		assets = append(assets, bundle.RawAsset{
			Path:        writeAsset(t, dir, fmt.Sprintf("asset-%03d", i), fmt.Sprintf("content %d", i)),
			ContentType: "image/png",
		})
	}
	return bundle.CollectedAssets{{
		Platform:    bundle.Web,
		LaunchAsset: bundle.RawAsset{Path: writeAsset(t, dir, "web.bundle", "web js"), ContentType: bundle.LaunchAssetContentType},
		Assets:      assets,
	}}
}
