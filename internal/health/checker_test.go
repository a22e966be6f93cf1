package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
)

type testToken struct{}

func (testToken) SignedHeaders(ctx context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer t"}, nil
}
func (testToken) Refresh(ctx context.Context) error { return nil }

func newTestFileSystem(t *testing.T, handler http.HandlerFunc) *filesystem.FileSystem {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := restclient.DefaultConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.BreakerEnabled = false
	rc := restclient.New(cfg, testToken{}, nil)
	return filesystem.New(rc)
}

func TestFileSystemCheckSucceedsOnReachableAccount(t *testing.T) {
	t.Parallel()

	fs := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"FileStatus":{"type":"DIRECTORY","length":0,"modificationTime":0,"permission":"755"}}`))
	})

	check := FileSystemCheck(fs)
	if err := check(context.Background()); err != nil {
		t.Fatalf("FileSystemCheck() error = %v, want nil", err)
	}
}

func TestFileSystemCheckFailsOnUnreachableAccount(t *testing.T) {
	t.Parallel()

	fs := newTestFileSystem(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"RemoteException":{"exception":"IOException","message":"backend unavailable"}}`))
	})

	check := FileSystemCheck(fs)
	if err := check(context.Background()); err == nil {
		t.Fatal("FileSystemCheck() error = nil, want error")
	}
}

func TestCheckerRunAllChecksAggregatesResults(t *testing.T) {
	t.Parallel()

	checker, err := NewChecker(&Config{
		Enabled: true,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewChecker() error = %v", err)
	}

	if err := checker.RegisterCheck("ping", "always succeeds", CategoryCore, PriorityLow, PingCheck()); err != nil {
		t.Fatalf("RegisterCheck() error = %v", err)
	}

	results, err := checker.RunAllChecks(context.Background())
	if err != nil {
		t.Fatalf("RunAllChecks() error = %v", err)
	}
	if results["ping"].Status != StatusHealthy {
		t.Errorf("ping status = %v, want %v", results["ping"].Status, StatusHealthy)
	}
	if !checker.IsHealthy() {
		t.Error("IsHealthy() = false, want true")
	}
}

func TestCheckerRegisterCheckRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	checker, err := NewChecker(nil)
	if err != nil {
		t.Fatalf("NewChecker() error = %v", err)
	}

	if err := checker.RegisterCheck("ping", "", CategoryCore, PriorityLow, PingCheck()); err != nil {
		t.Fatalf("first RegisterCheck() error = %v", err)
	}
	if err := checker.RegisterCheck("ping", "", CategoryCore, PriorityLow, PingCheck()); err == nil {
		t.Fatal("second RegisterCheck() error = nil, want error")
	}
}
