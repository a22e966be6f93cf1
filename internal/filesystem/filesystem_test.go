package filesystem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlsfs/adlsfs/internal/restclient"
)

type testToken struct{}

func (testToken) SignedHeaders(ctx context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer t"}, nil
}
func (testToken) Refresh(ctx context.Context) error { return nil }

func newTestFileSystem(t *testing.T, handler http.HandlerFunc) (*FileSystem, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	cfg := restclient.DefaultConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.BreakerEnabled = false
	rc := restclient.New(cfg, testToken{}, nil)
	return New(rc), srv
}

func TestLsPopulatesCacheAndName(t *testing.T) {
	fs, srv := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "LISTSTATUS", r.URL.Query().Get("OP"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"FileStatuses":{"FileStatus":[
			{"pathSuffix":"a.txt","type":"FILE","length":10},
			{"pathSuffix":"sub","type":"DIRECTORY","length":0}
		]}}`))
	})
	defer srv.Close()

	entries, err := fs.Ls(context.Background(), "/dir", false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dir/a.txt", entries[0].Name)
	assert.False(t, entries[0].IsDir())
	assert.True(t, entries[1].IsDir())

	cached, ok := fs.cache.Get("dir")
	require.True(t, ok)
	assert.Len(t, cached, 2)
}

func TestLsEmptyDirectoryReturnsEmptySlice(t *testing.T) {
	fs, srv := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"FileStatuses":{"FileStatus":[]}}`))
	})
	defer srv.Close()

	entries, err := fs.Ls(context.Background(), "/empty", false)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Len(t, entries, 0)
}

func TestExistsNeverErrors(t *testing.T) {
	fs, srv := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"RemoteException":{"exception":"FileNotFoundException"}}`))
	})
	defer srv.Close()

	assert.False(t, fs.Exists(context.Background(), "/missing"))
}

func TestRmRecursiveInvalidatesPrefix(t *testing.T) {
	fs, srv := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"boolean":true}`))
	})
	defer srv.Close()

	fs.cache.Set("dir/sub", []DirEntry{{Name: "dir/sub/x"}})
	fs.cache.Set("dir", []DirEntry{{Name: "dir/sub"}})

	err := fs.Rm(context.Background(), "/dir", true)
	require.NoError(t, err)

	_, ok := fs.cache.Get("dir/sub")
	assert.False(t, ok)
}

func TestSetExpiryRequiresExpireTimeUnlessNeverExpire(t *testing.T) {
	fs, srv := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be contacted on validation failure")
	})
	defer srv.Close()

	err := fs.SetExpiry(context.Background(), "/f", ExpiryAbsolute, 0)
	require.Error(t, err)
}
