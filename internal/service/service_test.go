package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/trendfeed/internal/config"
	"github.com/John-Robertt/trendfeed/internal/domain"
	"github.com/John-Robertt/trendfeed/internal/provider"
)

const trendingHTML = `<html><body>
<article class="Box-row">
  <h2 class="h3"><a href="/golang/go">golang / go</a></h2>
  <p class="col-9">The Go programming language</p>
  <span itemprop="programmingLanguage">Go</span>
  <a href="/golang/go/stargazers">120,004</a>
  <a href="/golang/go/forks">17,230</a>
  <span>95 stars today</span>
</article>
<article class="Box-row">
  <h2 class="h3"><a href="/rust-lang/rust">rust-lang / rust</a></h2>
</article>
</body></html>`

const storiesHTML = `<html><body>
<div data-test="story-item-7" class="styles_item__a">
  <a href="/stories/hello-world"><div class="text-18 font-bold">Hello world</div></a>
  <div class="text-12 text-light-gray"><a href="/@me">Me</a> · 3 min read</div>
</div>
</body></html>`

func testConfig() config.Config {
	return config.Config{
		CacheTTL:        600 * time.Second,
		RequestTimeout:  2 * time.Second,
		MaxWorkers:      2,
		MaxRepositories: 15,
		MaxStories:      15,
	}
}

// newTestService 把两个 provider 都指向同一个 httptest server。
func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := New(testConfig(), srv.Client(), nil)
	s.GitHub.BaseURL = srv.URL
	s.ProductHunt.BaseURL = srv.URL
	return s, srv
}

func TestTrending_CachedSecondCall(t *testing.T) {
	var fetches atomic.Int32
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte(trendingHTML))
	}))

	q := domain.TrendingQuery{Language: "Go", Since: "daily"}
	first, err := s.Trending(context.Background(), q)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if first.Cached {
		t.Fatalf("首次调用不应 cached")
	}
	if first.Count != 2 || len(first.Repositories) != 2 {
		t.Fatalf("期望 2 条记录，实际 count=%d len=%d", first.Count, len(first.Repositories))
	}
	if first.Language != "go" || first.Since != "daily" {
		t.Fatalf("信封应回显规范化参数，实际 %q/%q", first.Language, first.Since)
	}
	if first.UpdatedAt == "" {
		t.Fatalf("期望 updated_at 非空")
	}

	second, err := s.Trending(context.Background(), q)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !second.Cached {
		t.Fatalf("TTL 内第二次调用应 cached=true")
	}
	if second.Count != first.Count || second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("命中内容必须与首次一致")
	}
	if second.Repositories[0].Name != first.Repositories[0].Name {
		t.Fatalf("命中记录必须与首次一致")
	}
	if fetches.Load() != 1 {
		t.Fatalf("期望只抓取 1 次，实际=%d", fetches.Load())
	}
}

func TestTrending_TTLExpiryRefetches(t *testing.T) {
	var fetches atomic.Int32
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte(trendingHTML))
	}))

	now := time.Unix(5000, 0)
	s.trending.Now = func() time.Time { return now }

	q := domain.TrendingQuery{Since: "daily"}
	if _, err := s.Trending(context.Background(), q); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	now = now.Add(601 * time.Second)
	res, err := s.Trending(context.Background(), q)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Cached {
		t.Fatalf("TTL 过后应重新抓取，cached=false")
	}
	if fetches.Load() != 2 {
		t.Fatalf("期望 2 次抓取，实际=%d", fetches.Load())
	}
}

func TestTrending_NormalizedKeyShared(t *testing.T) {
	var fetches atomic.Int32
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte(trendingHTML))
	}))

	if _, err := s.Trending(context.Background(), domain.TrendingQuery{Language: "Python", Since: "bogus"}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 大小写与非法 since 规范化后应落进同一个缓存键。
	res, err := s.Trending(context.Background(), domain.TrendingQuery{Language: "python", Since: "daily"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !res.Cached {
		t.Fatalf("规范化后的同一键应命中缓存")
	}
	if fetches.Load() != 1 {
		t.Fatalf("期望只抓取 1 次，实际=%d", fetches.Load())
	}
}

func TestTrending_UpstreamErrorLeavesCacheEmpty(t *testing.T) {
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := s.Trending(context.Background(), domain.TrendingQuery{})
	var se *provider.HTTPStatusError
	if !errors.As(err, &se) {
		t.Fatalf("期望 *HTTPStatusError，实际=%v (%T)", err, err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("期望 503，实际=%d", se.StatusCode)
	}
	if s.CacheLen() != 0 {
		t.Fatalf("抓取失败不应落缓存，实际条目数=%d", s.CacheLen())
	}
}

func TestTrending_SingleFlight(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		<-release
		w.Write([]byte(trendingHTML))
	}))

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Trending(context.Background(), domain.TrendingQuery{}); err != nil {
				t.Errorf("不期望错误：%v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if fetches.Load() != 1 {
		t.Fatalf("并发同键请求应只触发 1 次上游抓取，实际=%d", fetches.Load())
	}
}

func TestTrending_WaiterTimeoutIsTimeoutError(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Write([]byte(trendingHTML))
	}))
	defer close(release)

	go func() {
		_, _ = s.Trending(context.Background(), domain.TrendingQuery{})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Trending(ctx, domain.TrendingQuery{})
	var te *provider.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("等待者本地超时应是 *TimeoutError，实际=%v (%T)", err, err)
	}
}

func TestStories_Envelope(t *testing.T) {
	s, srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(storiesHTML))
	}))

	res, err := s.Stories(context.Background(), domain.StoriesQuery{Category: "Makers"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Cached {
		t.Fatalf("首次调用不应 cached")
	}
	if res.Count != 1 || len(res.Stories) != 1 {
		t.Fatalf("期望 1 条记录，实际 count=%d", res.Count)
	}
	if res.Category != "makers" {
		t.Fatalf("信封应回显规范化 category，实际=%q", res.Category)
	}
	st := res.Stories[0]
	if st.URL != srv.URL+"/stories/hello-world" {
		t.Fatalf("URL 不符合预期：%q", st.URL)
	}
	if st.Category != "makers" || st.ReadTime != 3 {
		t.Fatalf("记录字段不符合预期：%+v", st)
	}
}

func TestWarm_PopulatesCaches(t *testing.T) {
	var fetches atomic.Int32
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if r.URL.Path == "/stories" {
			w.Write([]byte(storiesHTML))
			return
		}
		w.Write([]byte(trendingHTML))
	}))

	s.Warm(context.Background())

	// 5 个 trending 键 + 5 个 stories 键。
	if s.CacheLen() != 10 {
		t.Fatalf("期望预热出 10 个条目，实际=%d", s.CacheLen())
	}
	if fetches.Load() != 10 {
		t.Fatalf("期望 10 次抓取，实际=%d", fetches.Load())
	}

	res, err := s.Trending(context.Background(), domain.TrendingQuery{Language: "go"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !res.Cached {
		t.Fatalf("预热后的查询应命中缓存")
	}
}
