package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlsfs/adlsfs/internal/config"
)

type testToken struct{}

func (testToken) SignedHeaders(ctx context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer t"}, nil
}
func (testToken) Refresh(ctx context.Context) error { return nil }

func TestValidateStorageURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		uri         string
		want        string
		wantErr     bool
		errContains string
	}{
		{name: "https URI", uri: "https://myaccount.store.example.com", want: "https://myaccount.store.example.com"},
		{name: "azure scheme rewritten to https", uri: "azure://myaccount.store.example.com", want: "https://myaccount.store.example.com"},
		{name: "azure scheme without host", uri: "azure://", wantErr: true, errContains: "must include a host"},
		{name: "unsupported scheme", uri: "s3://my-bucket", wantErr: true, errContains: "must use the azure:// or https:// scheme"},
		{name: "empty URI", uri: "", wantErr: true, errContains: "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateStorageURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewValidConfiguration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.NewDefault()

	a, err := New(ctx, "https://account.store.example.com", "", cfg, testToken{})
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "https://account.store.example.com", a.storageURI)
	assert.Empty(t, a.mountPoint)
	assert.False(t, a.started)
	assert.NotNil(t, a.FileSystem())
}

func TestNewInvalidStorageURI(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.NewDefault()

	_, err := New(ctx, "s3://bucket", "", cfg, testToken{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestNewInvalidConfiguration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.NewDefault()
	cfg.Transfer.ChunkSize = 0 // invalid per Configuration.Validate

	_, err := New(ctx, "https://account.store.example.com", "", cfg, testToken{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewDefaultsConfigurationWhenNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, err := New(ctx, "https://account.store.example.com", "", nil, testToken{})
	require.NoError(t, err)
	require.NotNil(t, a.cfg)
}

func TestAdapterDoubleStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.NewDefault()
	a, err := New(ctx, "https://account.store.example.com", "", cfg, testToken{})
	require.NoError(t, err)
	a.started = true

	err = a.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestAdapterStopNotStartedIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.NewDefault()
	a, err := New(ctx, "https://account.store.example.com", "", cfg, testToken{})
	require.NoError(t, err)

	require.NoError(t, a.Stop(ctx))
}
