package aclwalker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
)

type testToken struct{}

func (testToken) SignedHeaders(ctx context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer t"}, nil
}
func (testToken) Refresh(ctx context.Context) error { return nil }

// dirTree maps a path to its LISTSTATUS children; leaves have no entry.
func newTreeServer(t *testing.T, tree map[string]string, acls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := r.URL.Query().Get("OP")
		switch op {
		case "LISTSTATUS":
			p := r.URL.Path
			body, ok := tree[p]
			if !ok {
				body = `{"FileStatuses":{"FileStatus":[]}}`
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(body))
		case "MODIFYACLENTRIES":
			atomic.AddInt32(acls, 1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func TestRunAppliesAclToEveryDiscoveredPath(t *testing.T) {
	var acls int32
	tree := map[string]string{
		"/root": `{"FileStatuses":{"FileStatus":[
			{"pathSuffix":"a.txt","type":"FILE","length":1},
			{"pathSuffix":"sub","type":"DIRECTORY","length":0}
		]}}`,
		"/root/sub": `{"FileStatuses":{"FileStatus":[
			{"pathSuffix":"b.txt","type":"FILE","length":1}
		]}}`,
	}
	srv := newTreeServer(t, tree, &acls)
	defer srv.Close()

	cfg := restclient.DefaultConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.BreakerEnabled = false
	rc := restclient.New(cfg, testToken{}, nil)
	fs := filesystem.New(rc)

	w := New(fs, Config{Walkers: 2, ApplierCount: 2})
	err := w.Run(context.Background(), "/root", VerbModifyAclEntries, "user:bob:rwx")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&acls)) // a.txt, sub, b.txt
}

func TestApplierCountDefaultsToAtLeastTwo(t *testing.T) {
	cfg := Config{}
	assert.GreaterOrEqual(t, cfg.applierCount(), 2)
}
