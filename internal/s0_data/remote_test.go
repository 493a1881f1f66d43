package s0_data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/config"
	"github.com/hvkconsulling1/momo-sub000/pkg/httputil"
)

func TestRemoteExport_Sync(t *testing.T) {
	// 원격 서버가 로컬에서 만든 export 파일을 제공
	exportDir := t.TempDir()
	require.NoError(t, WritePriceFile(filepath.Join(exportDir, "SP500", "prices.parquet"), sampleBars()))
	require.NoError(t, WriteMembershipFile(filepath.Join(exportDir, "SP500", "membership.parquet"), sampleMembership()))
	server := httptest.NewServer(http.FileServer(http.Dir(exportDir)))
	defer server.Close()

	client := httputil.New(&config.Config{Source: config.SourceConfig{Timeout: 5 * time.Second}}, nil)
	remote := NewRemoteExport(server.URL, t.TempDir(), client, nil)

	source, err := remote.Sync(context.Background(), "SP500")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(remote.LocalDir("SP500"), "prices.parquet"), source.PricesPath)

	bars, err := source.LoadBars(context.Background(), nil, time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, bars, len(sampleBars()))
}

type failingDownloader struct{}

func (failingDownloader) Download(ctx context.Context, url, path string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRemoteExport_Errors(t *testing.T) {
	_, err := NewRemoteExport("", t.TempDir(), failingDownloader{}, nil).Sync(context.Background(), "SP500")
	assert.True(t, errors.Is(err, contracts.ErrData))

	_, err = NewRemoteExport("http://example.invalid", t.TempDir(), failingDownloader{}, nil).Sync(context.Background(), "SP500")
	assert.True(t, errors.Is(err, contracts.ErrData))

	_, err = NewRemoteExport("http://example.invalid", t.TempDir(), failingDownloader{}, nil).Sync(context.Background(), "")
	assert.True(t, errors.Is(err, contracts.ErrData))
}
