package s0_data

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

// Downloader fetches one URL into a local file (pkg/httputil.Client)
type Downloader interface {
	Download(ctx context.Context, url, path string) (int64, error)
}

// RemoteExport mirrors a vendor export published over HTTP:
//
//	{base_url}/{universe}/prices.parquet
//	{base_url}/{universe}/membership.parquet
//
// into {data_dir}/import/{universe}/.
type RemoteExport struct {
	baseURL string
	dataDir string
	client  Downloader
	log     *logger.Logger
}

// NewRemoteExport creates a remote export mirror
func NewRemoteExport(baseURL, dataDir string, client Downloader, log *logger.Logger) *RemoteExport {
	if log == nil {
		log = logger.NewNop()
	}
	return &RemoteExport{
		baseURL: baseURL,
		dataDir: dataDir,
		client:  client,
		log:     log.WithStage(contracts.StageData.ShortName()),
	}
}

// LocalDir returns where a universe's files are mirrored
func (r *RemoteExport) LocalDir(universe string) string {
	return filepath.Join(r.dataDir, "import", universe)
}

// Sync downloads both files and returns a FileSource over the local copies
func (r *RemoteExport) Sync(ctx context.Context, universe string) (*FileSource, error) {
	if r.baseURL == "" {
		return nil, contracts.DataErrorf("no remote source configured (DATA_SOURCE_URL)")
	}
	if universe == "" {
		return nil, contracts.DataErrorf("universe name is required")
	}

	dir := r.LocalDir(universe)
	prices := filepath.Join(dir, "prices.parquet")
	membership := filepath.Join(dir, "membership.parquet")

	for _, f := range []struct{ name, path string }{
		{"prices.parquet", prices},
		{"membership.parquet", membership},
	} {
		src, err := url.JoinPath(r.baseURL, universe, f.name)
		if err != nil {
			return nil, fmt.Errorf("build url: %w", err)
		}
		n, err := r.client.Download(ctx, src, f.path)
		if err != nil {
			return nil, contracts.DataErrorf("download %s: %v", src, err)
		}
		r.log.WithFields(map[string]interface{}{
			"universe": universe,
			"file":     f.name,
			"bytes":    n,
		}).Info("remote_export_downloaded")
	}

	// 스키마 확인은 FileSource 가 읽을 때 수행
	return NewFileSource(prices, membership), nil
}
