package service

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/trendfeed/internal/config"
	"github.com/John-Robertt/trendfeed/internal/domain"
	"github.com/John-Robertt/trendfeed/internal/infra/cache"
	"github.com/John-Robertt/trendfeed/internal/provider"
	"github.com/John-Robertt/trendfeed/internal/provider/github"
	"github.com/John-Robertt/trendfeed/internal/provider/producthunt"
)

// Service 编排 抓取 -> 解析 -> 缓存 的完整流水线。
//
// 约束：
// - 进程内唯一实例，显式注入（不做包级全局状态），便于测试替换假时钟/假站点
// - 抓取失败（网络/超时/非 2xx）原样向上传播，该 key 的缓存保持未填充
// - compute 使用独立于请求方的 ctx：等待者超时不取消共享抓取
type Service struct {
	// GitHub / ProductHunt 暴露为字段：测试把 BaseURL 指到 httptest server。
	GitHub      github.Provider
	ProductHunt producthunt.Provider

	client *http.Client
	cfg    config.Config
	logger *log.Logger

	trending *cache.Store[trendingPayload]
	stories  *cache.Store[storiesPayload]

	now func() time.Time
}

// 缓存里存"记录 + 生成时刻"；cached 标志是每次调用的属性，由信封层补上。
type trendingPayload struct {
	repos     []domain.Repository
	updatedAt time.Time
}

type storiesPayload struct {
	stories   []domain.Story
	updatedAt time.Time
}

func New(cfg config.Config, client *http.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		trending: cache.New[trendingPayload](),
		stories:  cache.New[storiesPayload](),
		now:      time.Now,
	}
}

// Trending 返回 trending 仓库结果信封。
// 参数规范化 -> 缓存键 -> 命中直接返回 / 未命中走 single-flight 抓取解析。
func (s *Service) Trending(ctx context.Context, q domain.TrendingQuery) (domain.TrendingResult, error) {
	q = q.Normalize()
	key := q.CacheKey()

	payload, cached, err := s.trending.Do(ctx, key, s.cfg.CacheTTL, func() (trendingPayload, error) {
		html, err := s.fetch(func(fctx context.Context) ([]byte, error) {
			return s.GitHub.Fetch(fctx, s.client, q)
		})
		if err != nil {
			return trendingPayload{}, err
		}
		repos, err := s.GitHub.Parse(html, s.cfg.MaxRepositories)
		if err != nil {
			return trendingPayload{}, err
		}
		return trendingPayload{repos: repos, updatedAt: s.now()}, nil
	})
	if err != nil {
		return domain.TrendingResult{}, waiterTimeout(err)
	}

	return domain.TrendingResult{
		Repositories: payload.repos,
		Count:        len(payload.repos),
		Language:     q.Language,
		Since:        q.Since,
		UpdatedAt:    payload.updatedAt.UTC().Format(time.RFC3339),
		Cached:       cached,
	}, nil
}

// Stories 返回 stories 结果信封。
func (s *Service) Stories(ctx context.Context, q domain.StoriesQuery) (domain.StoriesResult, error) {
	q = q.Normalize()
	key := q.CacheKey()

	payload, cached, err := s.stories.Do(ctx, key, s.cfg.CacheTTL, func() (storiesPayload, error) {
		html, err := s.fetch(func(fctx context.Context) ([]byte, error) {
			return s.ProductHunt.Fetch(fctx, s.client, q)
		})
		if err != nil {
			return storiesPayload{}, err
		}
		stories, err := s.ProductHunt.Parse(html, q.Category, s.cfg.MaxStories)
		if err != nil {
			return storiesPayload{}, err
		}
		return storiesPayload{stories: stories, updatedAt: s.now()}, nil
	})
	if err != nil {
		return domain.StoriesResult{}, waiterTimeout(err)
	}

	return domain.StoriesResult{
		Stories:   payload.stories,
		Count:     len(payload.stories),
		Category:  q.Category,
		UpdatedAt: payload.updatedAt.UTC().Format(time.RFC3339),
		Cached:    cached,
	}, nil
}

// fetch 以独立 ctx 执行一次抓取：共享计算不能被任何单个等待者的取消牵连，
// 超时上界由配置的 RequestTimeout 提供。
func (s *Service) fetch(do func(context.Context) ([]byte, error)) ([]byte, error) {
	fctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	return do(fctx)
}

// waiterTimeout 把等待 in-flight 计算时的本地 ctx 截止统一成类型化 TimeoutError；
// 计算自身的类型化错误原样透传。
func waiterTimeout(err error) error {
	var te *provider.TimeoutError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.TimeoutError{Err: err}
	}
	return err
}

// WarmQueries 是启动预热覆盖的常用查询组合（与面板端高频访问对齐）。
func WarmQueries() ([]domain.TrendingQuery, []domain.StoriesQuery) {
	langs := []string{"", "go", "python", "javascript", "typescript"}
	tqs := make([]domain.TrendingQuery, 0, len(langs))
	for _, l := range langs {
		tqs = append(tqs, domain.TrendingQuery{Language: l, Since: domain.DefaultSince})
	}
	cats := []string{"", "makers", "product-updates", "how-tos", "news"}
	sqs := make([]domain.StoriesQuery, 0, len(cats))
	for _, c := range cats {
		sqs = append(sqs, domain.StoriesQuery{Category: c})
	}
	return tqs, sqs
}

// Warm 并发预热缓存，受 MaxWorkers 限流；单条失败只记日志，永不失败整个预热。
func (s *Service) Warm(ctx context.Context) {
	tqs, sqs := WarmQueries()

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxWorkers)

	for _, q := range tqs {
		q := q
		g.Go(func() error {
			if _, err := s.Trending(ctx, q); err != nil {
				s.logger.Printf("预热 trending 失败：key=%s err=%v", q.Normalize().CacheKey(), err)
			}
			return nil
		})
	}
	for _, q := range sqs {
		q := q
		g.Go(func() error {
			if _, err := s.Stories(ctx, q); err != nil {
				s.logger.Printf("预热 stories 失败：key=%s err=%v", q.Normalize().CacheKey(), err)
			}
			return nil
		})
	}

	_ = g.Wait()
	s.logger.Printf("缓存预热完成：entries=%d", s.CacheLen())
}

// CacheInfo 返回两个缓存的观测快照（/health 用）。
func (s *Service) CacheInfo() []cache.EntryInfo {
	infos := s.trending.Info()
	return append(infos, s.stories.Info()...)
}

// CacheLen 返回缓存条目总数。
func (s *Service) CacheLen() int {
	return s.trending.Len() + s.stories.Len()
}
