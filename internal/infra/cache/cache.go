package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store 是进程内的按键 TTL 缓存，带 single-flight 去重。
//
// 约束：
// - 同一 key 任意时刻最多一次 in-flight 计算；并发请求者挂在同一次计算上
// - 条目在 now >= expiry 后失效，失效后不允许直接返回，必须重新计算
// - 计算失败不落缓存（无负缓存）；下一次调用从头重试
// - 条目替换而不是原地修改；不做后台淘汰（key 空间天然有限，惰性过期即可）
//
// cached 标志约定（已定稿）：只有读到"调用前就已存在且未过期"的条目才算
// cached=true；挂在别人 in-flight 计算上的等待者拿到的是新鲜结果，报告
// cached=false（它们没有读到既有缓存，尽管也没有触发自己的抓取）。
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	g       singleflight.Group

	// Now 允许测试注入假时钟；为空时使用 time.Now。
	Now func() time.Time
}

type entry[V any] struct {
	value     V
	createdAt time.Time
	expiry    time.Time
}

// flightResult 区分"计算出新值"与"加入时发现别的 flight 刚存好的值"。
type flightResult[V any] struct {
	value  V
	reused bool
}

func New[V any]() *Store[V] {
	return &Store[V]{entries: make(map[string]entry[V])}
}

func (s *Store[V]) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Do 实现 get-or-compute：
// - key 有未过期条目：立即返回 (value, cached=true)，不触发 compute
// - 否则通过 single-flight 对该 key 恰好执行一次 compute，成功后以
//   expiry = now + ttl 存入，所有等待者拿到同一结果，cached=false
// - compute 失败：错误传播给该 key 的所有等待者，不落缓存
// - ctx 在等待 in-flight 计算期间截止：本调用立即返回 ctx.Err()，
//   但不取消底层计算（其他等待者不受影响；compute 的超时由 compute 自己控制）
func (s *Store[V]) Do(ctx context.Context, key string, ttl time.Duration, compute func() (V, error)) (V, bool, error) {
	if v, ok := s.lookup(key); ok {
		return v, true, nil
	}

	ch := s.g.DoChan(key, func() (interface{}, error) {
		// 双重检查：排队期间别的 flight 可能刚把新值存好，直接复用，
		// 避免对同一 key 的背靠背重复抓取。
		if v, ok := s.lookup(key); ok {
			return flightResult[V]{value: v, reused: true}, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		s.store(key, v, ttl)
		return flightResult[V]{value: v}, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, false, res.Err
		}
		fr := res.Val.(flightResult[V])
		return fr.value, fr.reused, nil
	}
}

// lookup 只返回未过期条目；过期条目视同不存在（惰性过期，由下一次 miss 覆盖）。
func (s *Store[V]) lookup(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expiry) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) store(key string, v V, ttl time.Duration) {
	now := s.now()
	s.mu.Lock()
	s.entries[key] = entry[V]{value: v, createdAt: now, expiry: now.Add(ttl)}
	s.mu.Unlock()
}

// EntryInfo 是单个缓存条目的观测信息（/health 用）。
type EntryInfo struct {
	Key        string  `json:"key"`
	AgeSeconds float64 `json:"age_seconds"`
	Valid      bool    `json:"is_valid"`
}

// Info 返回当前缓存的观测快照（含已过期但尚未被覆盖的条目）。
func (s *Store[V]) Info() []EntryInfo {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]EntryInfo, 0, len(s.entries))
	for k, e := range s.entries {
		infos = append(infos, EntryInfo{
			Key:        k,
			AgeSeconds: now.Sub(e.createdAt).Seconds(),
			Valid:      now.Before(e.expiry),
		})
	}
	return infos
}

// Len 返回缓存中的条目数（含过期未覆盖的）。
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
