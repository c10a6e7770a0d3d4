package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/John-Robertt/trendfeed/internal/config"
	"github.com/John-Robertt/trendfeed/internal/domain"
	"github.com/John-Robertt/trendfeed/internal/infra/cache"
	"github.com/John-Robertt/trendfeed/internal/provider"
	"github.com/John-Robertt/trendfeed/internal/service"
)

// API 是薄路由层：参数透传给 service，错误映射为 HTTP 状态码，结果 JSON 化。
// 路由本身不是核心（见 service/ 与 provider/），这里只保留最小必需的出口面。
type API struct {
	svc     *service.Service
	cfg     config.Config
	version string
	logger  *log.Logger
}

func New(svc *service.Service, cfg config.Config, version string, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{svc: svc, cfg: cfg, version: version, logger: logger}
}

// Handler 组装路由表。
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /trending", a.handleTrending)
	mux.HandleFunc("GET /product-hunt/stories", a.handleStories)
	mux.HandleFunc("GET /health", a.handleHealth)
	return mux
}

func (a *API) handleTrending(w http.ResponseWriter, r *http.Request) {
	q := domain.TrendingQuery{
		Language: r.URL.Query().Get("language"),
		Since:    r.URL.Query().Get("since"),
	}

	res, err := a.svc.Trending(r.Context(), q)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleStories(w http.ResponseWriter, r *http.Request) {
	q := domain.StoriesQuery{Category: r.URL.Query().Get("category")}

	res, err := a.svc.Stories(r.Context(), q)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Cache     struct {
		CachedEntries int               `json:"cached_entries"`
		Entries       []cache.EntryInfo `json:"entries"`
	} `json:"cache"`
	Config map[string]any `json:"config"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   a.version,
	}
	resp.Cache.Entries = a.svc.CacheInfo()
	resp.Cache.CachedEntries = len(resp.Cache.Entries)
	resp.Config = map[string]any{
		"cache_timeout":    int(a.cfg.CacheTTL.Seconds()),
		"request_timeout":  int(a.cfg.RequestTimeout.Seconds()),
		"max_workers":      a.cfg.MaxWorkers,
		"max_repositories": a.cfg.MaxRepositories,
		"max_stories":      a.cfg.MaxStories,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "trendfeed - trending pages over HTTP with short-lived caching",
		"version": a.version,
		"endpoints": map[string]string{
			"github-trending":     "/trending",
			"producthunt-stories": "/product-hunt/stories",
			"health":              "/health",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// writeError 把类型化抓取错误映射为 HTTP 状态码：
// 超时 -> 504；上游非 2xx / 网络失败 -> 502；其余 -> 500。
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	label := "Internal Server Error"

	var (
		te *provider.TimeoutError
		se *provider.HTTPStatusError
		ne *provider.NetworkError
	)
	switch {
	case errors.As(err, &te):
		status = http.StatusGatewayTimeout
		label = "Upstream Timeout"
	case errors.As(err, &se):
		status = http.StatusBadGateway
		label = "Upstream Error"
	case errors.As(err, &ne):
		status = http.StatusBadGateway
		label = "Upstream Unreachable"
	}

	a.logger.Printf("请求失败：status=%d err=%v", status, err)
	writeJSON(w, status, errorResponse{
		Error:     label,
		Detail:    err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// 编码失败时头已发出，只能尽力而为；v 都是本包可控结构，不会携带不可序列化字段。
	_ = json.NewEncoder(w).Encode(v)
}
