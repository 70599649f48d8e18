package federation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dep2p/go-fedhost/config"
	pkgif "github.com/dep2p/go-fedhost/pkg/interfaces"
)

// ErrManifestTooLarge 清单超过大小上限
var ErrManifestTooLarge = errors.New("manifest too large")

// HTTPFetcher 通过 HTTP 抓取远程清单
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// 确保实现接口
var _ pkgif.ManifestFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher 创建 HTTP 清单抓取器
//
// 超时由调用方的 context 控制；响应的 gzip 压缩由 Transport 透明处理。
func NewHTTPFetcher(cfg config.FederationConfig) *HTTPFetcher {
	maxBytes := cfg.MaxManifestBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultFederationConfig().MaxManifestBytes
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch 抓取清单
func (f *HTTPFetcher) Fetch(ctx context.Context, remote, entryURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP 请求失败: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}

	// 多读一个字节用于判断是否超限
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: > %d bytes", ErrManifestTooLarge, f.maxBytes)
	}

	log.Debug("清单已抓取", "remote", remote, "entry", entryURL, "bytes", len(body))
	return body, nil
}

// Close 关闭空闲连接
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// FetcherFunc 函数适配器
type FetcherFunc func(ctx context.Context, remote, entryURL string) ([]byte, error)

// Fetch 实现 ManifestFetcher
func (fn FetcherFunc) Fetch(ctx context.Context, remote, entryURL string) ([]byte, error) {
	return fn(ctx, remote, entryURL)
}
