package httpx

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_PoolConfig(t *testing.T) {
	c := NewClient(Options{PoolConnections: 7, PoolMaxSize: 3, Timeout: time.Second})
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.MaxIdleConns != 7 {
		t.Fatalf("期望 MaxIdleConns=7，实际=%d", tr.Base.MaxIdleConns)
	}
	if tr.Base.MaxIdleConnsPerHost != 3 {
		t.Fatalf("期望 MaxIdleConnsPerHost=3，实际=%d", tr.Base.MaxIdleConnsPerHost)
	}
	if tr.Base.MaxConnsPerHost != 0 {
		t.Fatalf("Block=false 时不应设置 MaxConnsPerHost，实际=%d", tr.Base.MaxConnsPerHost)
	}
	if c.Timeout != time.Second {
		t.Fatalf("期望 Timeout=1s，实际=%v", c.Timeout)
	}
}

func TestNewClient_BlockCapsPerHost(t *testing.T) {
	c := NewClient(Options{PoolConnections: 10, PoolMaxSize: 4, Block: true})
	tr := c.Transport.(*Transport)
	if tr.Base.MaxConnsPerHost != 4 {
		t.Fatalf("Block=true 时期望 MaxConnsPerHost=4，实际=%d", tr.Base.MaxConnsPerHost)
	}
}

func TestTransport_SetsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
	}))
	defer srv.Close()

	c := NewClient(Options{PoolConnections: 1, PoolMaxSize: 1, Timeout: 2 * time.Second})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()

	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Fatalf("期望浏览器 UA，实际=%q", gotUA)
	}
	if gotAccept == "" {
		t.Fatalf("期望设置 Accept 头")
	}
}

func TestTransport_RetrySucceedsAfterFlake(t *testing.T) {
	// 前两次请求由 server 侧直接断开，第三次放行；RetryMax=2 应最终成功。
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatalf("httptest server 不支持 Hijack")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("Hijack 失败：%v", err)
			}
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Options{PoolConnections: 1, PoolMaxSize: 1, RetryMax: 2, Timeout: 5 * time.Second})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("期望重试后成功，实际错误：%v", err)
	}
	resp.Body.Close()
	if got := hits.Load(); got != 3 {
		t.Fatalf("期望 3 次尝试，实际=%d", got)
	}
}

func TestTransport_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		hj := w.(http.Hijacker)
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("Hijack 失败：%v", err)
		}
		conn.Close()
	}))
	defer srv.Close()

	c := NewClient(Options{PoolConnections: 1, PoolMaxSize: 1, Timeout: 2 * time.Second})
	if _, err := c.Get(srv.URL); err == nil {
		t.Fatalf("期望连接失败")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("RetryMax=0 时期望 1 次尝试，实际=%d", got)
	}
}
