package httpx

import (
	"errors"
	"net/http"
	"time"
)

// Options 是连接池与重试策略的注入配置（进程启动时构造一次，全局复用）。
//
// 字段语义对齐常见连接池参数：
// - PoolConnections：空闲连接总数（transport 的 MaxIdleConns）
// - PoolMaxSize：单 host 连接上限（MaxIdleConnsPerHost；Block=true 时同时作为硬上限）
// - RetryMax：transport 层最大重试次数（不含首次尝试；默认 0 即不重试）
// - Block：池耗尽时是阻塞等待（true）还是不设硬上限直接新建连接（false）
type Options struct {
	PoolConnections int
	PoolMaxSize     int
	RetryMax        int
	Block           bool
	Timeout         time.Duration
}

// Transport 把"浏览器头 + keep-alive 池 + 有界重试"固化为统一策略。
//
// 设计目标：provider 只负责"定位页面 + 解析 HTML"，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对"可重放"的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := cloneRequest(req)
		setBrowserHeaders(r)

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func cloneRequest(req *http.Request) *http.Request {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部"污染"调用方的 request。
	return req.Clone(req.Context())
}

// setBrowserHeaders 补齐上游站点期望的浏览器请求头（调用方已设置的不覆盖）。
// GitHub/Product Hunt 对裸 Go-http-client UA 的页面渲染不稳定，统一在这里处理。
func setBrowserHeaders(r *http.Request) {
	set := func(k, v string) {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	set("Accept-Language", "en-US,en;q=0.5")
	set("Connection", "keep-alive")
	set("Upgrade-Insecure-Requests", "1")
}

// NewClient 构造用于页面抓取的共享 HTTP client。
//
// 规则：
// - 进程只构造一次；所有 provider 复用同一连接池
// - opts.Block=false：不设 MaxConnsPerHost，池耗尽时直接新建连接（fail-open）
// - opts.Block=true：MaxConnsPerHost=PoolMaxSize，超出的请求阻塞等待空闲连接
// - 关停时调用 client.CloseIdleConnections() 释放池内 socket
func NewClient(opts Options) *http.Client {
	if opts.PoolConnections < 1 {
		opts.PoolConnections = 1
	}
	if opts.PoolMaxSize < 1 {
		opts.PoolMaxSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}

	base := &http.Transport{
		MaxIdleConns:          opts.PoolConnections,
		MaxIdleConnsPerHost:   opts.PoolMaxSize,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		ForceAttemptHTTP2:     true,
	}
	if opts.Block {
		base.MaxConnsPerHost = opts.PoolMaxSize
	}

	return &http.Client{
		Transport: &Transport{
			Base:     base,
			RetryMax: opts.RetryMax,
		},
		Timeout: opts.Timeout,
	}
}
