package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dutyfree/reconcile/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Bucket:          "payouts",
		Region:          "ap-northeast-2",
		Endpoint:        srv.URL,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}, zap.NewNop())
	require.NoError(t, err)
	return store, fake
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), config.StorageConfig{Region: "us-east-1"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestS3Store_Put(t *testing.T) {
	store, fake := newTestStore(t)

	err := store.Put(context.Background(), "payouts/owner/a.zip", "application/zip", []byte("zipdata"))
	require.NoError(t, err)

	assert.Equal(t, []byte("zipdata"), fake.objects["/payouts/payouts/owner/a.zip"])
	assert.Equal(t, "application/zip", fake.types["/payouts/payouts/owner/a.zip"])

	assert.Error(t, store.Put(context.Background(), "", "application/zip", nil))
}

func TestS3Store_PresignGet(t *testing.T) {
	store, _ := newTestStore(t)

	raw, err := store.PresignGet(context.Background(), "payouts/owner/a.zip", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/payouts/payouts/owner/a.zip", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3Store_EnsureBucketExisting(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.EnsureBucket(context.Background()))
}
