package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
)

// BlobSource 按名称读取数据集 blob（点击日志、文章元数据、文章向量）。
// 支持不同来源：本地目录、HTTP 容器（如对象存储 + SAS 查询串）、任意 core.Store。
type BlobSource interface {
	// Open 打开 blob，调用方负责 Close。blob 不存在时返回 core.ErrStoreNotFound。
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource 本地目录数据源。
type DirSource struct {
	Dir string
}

func (s DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, filepath.Clean("/"+name)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", name, core.ErrStoreNotFound)
	}
	return f, err
}

// HTTPSource 从 HTTP 容器读取 blob：GET {BaseURL}/{Container}/{name}?{Query}。
type HTTPSource struct {
	BaseURL   string
	Container string
	// Query 追加到每个请求的查询串（例如对象存储的 SAS token）
	Query  string
	Client *http.Client
}

// NewHTTPSource 创建 HTTP 数据源
//
// 用法：
//
//	src := dataset.NewHTTPSource("https://acct.blob.core.windows.net", "data", sasToken, 5*time.Minute)
func NewHTTPSource(baseURL, container, query string, timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPSource{
		BaseURL:   baseURL,
		Container: container,
		Query:     strings.TrimPrefix(query, "?"),
		Client:    &http.Client{Timeout: timeout},
	}
}

// URL 返回 blob 的完整地址。
func (s *HTTPSource) URL(name string) (string, error) {
	u, err := url.Parse(strings.TrimRight(s.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	u = u.JoinPath(s.Container, name)
	u.RawQuery = s.Query
	return u.String(), nil
}

func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target, err := s.URL(name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP 请求失败: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", name, core.ErrStoreNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP 请求失败: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// StoreSource 从 core.Store 读取 blob，key 即 blob 名称加前缀。
type StoreSource struct {
	Store  core.Store
	Prefix string
}

func (s StoreSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	data, err := s.Store.Get(ctx, s.Prefix+name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// CachedSource 是读穿缓存：先查 Cache，未命中时从 Origin 读取并写回 Cache。
type CachedSource struct {
	Origin BlobSource
	Cache  core.Store
	Prefix string
	// TTL 缓存过期秒数，0 表示不过期
	TTL    int
	Logger zerolog.Logger
}

func (s *CachedSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.Prefix + name
	data, err := s.Cache.Get(ctx, key)
	if err == nil {
		metrics.BlobCacheHits.Inc()
		s.Logger.Debug().Str("blob", name).Str("cache", s.Cache.Name()).Msg("blob cache hit")
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	if !core.IsStoreNotFound(err) {
		s.Logger.Warn().Err(err).Str("blob", name).Msg("blob cache read failed, falling back to origin")
	}
	metrics.BlobCacheMisses.Inc()

	rc, err := s.Origin.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := s.Cache.Set(ctx, key, data, s.TTL); err != nil {
		s.Logger.Warn().Err(err).Str("blob", name).Msg("blob cache write failed")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
