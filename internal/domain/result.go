package domain

// TrendingResult 是 trending 接口返回的结果信封。
//
// 约束：
// - Repositories 永远非 nil（空结果序列化为 []，不是 null）
// - UpdatedAt 是该份数据生成时刻（RFC3339），缓存命中时保持首次生成的时间
type TrendingResult struct {
	Repositories []Repository `json:"repositories"`
	Count        int          `json:"count"`
	Language     string       `json:"language,omitempty"`
	Since        string       `json:"since"`
	UpdatedAt    string       `json:"updated_at"`
	Cached       bool         `json:"cached"`
}

// StoriesResult 是 stories 接口返回的结果信封。
type StoriesResult struct {
	Stories   []Story `json:"stories"`
	Count     int     `json:"count"`
	Category  string  `json:"category,omitempty"`
	UpdatedAt string  `json:"updated_at"`
	Cached    bool    `json:"cached"`
}
