package domain

import "strings"

// DefaultSince 是 trending 时间窗口的默认值（与上游站点一致）。
const DefaultSince = "daily"

// TrendingQuery 是 trending 请求的查询参数（规范化前后共用同一结构）。
type TrendingQuery struct {
	Language string // 可选；规范化为小写
	Since    string // daily / weekly / monthly；非法值回退 daily
}

// Normalize 返回规范化后的查询：language 小写去空白；since 限定在
// {daily, weekly, monthly}，其他值一律回退 daily（与上游表现一致，不报错）。
func (q TrendingQuery) Normalize() TrendingQuery {
	q.Language = strings.ToLower(strings.TrimSpace(q.Language))
	switch strings.ToLower(strings.TrimSpace(q.Since)) {
	case "weekly":
		q.Since = "weekly"
	case "monthly":
		q.Since = "monthly"
	default:
		q.Since = DefaultSince
	}
	return q
}

// CacheKey 把规范化查询映射为缓存键。
// key 空间有限（language × since 的组合），缓存天然有界。
func (q TrendingQuery) CacheKey() string {
	lang := q.Language
	if lang == "" {
		lang = "all"
	}
	return "trending/" + lang + "/" + q.Since
}

// StoriesQuery 是 stories 请求的查询参数。
type StoriesQuery struct {
	Category string // 可选；规范化为小写
}

func (q StoriesQuery) Normalize() StoriesQuery {
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	return q
}

func (q StoriesQuery) CacheKey() string {
	cat := q.Category
	if cat == "" {
		cat = "all"
	}
	return "stories/" + cat
}
