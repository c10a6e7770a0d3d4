package domain

// Contributor 是趋势仓库的头像贡献者（用户名 + 头像图片 URL）。
type Contributor struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Repository 是从 GitHub trending 页面解析得到的仓库记录。
//
// 约束：
// - Owner 与 Repo 必须非空（解析不出时整条记录丢弃，不允许发出残缺记录）
// - 其余字段缺失允许为默认值（空串 / 0），结构必须稳定
type Repository struct {
	Name          string        `json:"name"` // "owner/repo"
	URL           string        `json:"url"`
	Owner         string        `json:"owner"`
	Repo          string        `json:"repository"`
	Description   string        `json:"description"`
	Language      string        `json:"language,omitempty"`
	LanguageColor string        `json:"language_color,omitempty"`
	Stars         int           `json:"stars"`
	Forks         int           `json:"forks"`
	StarsToday    int           `json:"stars_today"`
	Contributors  []Contributor `json:"contributors"`
}

// Story 是从 Product Hunt stories 页面解析得到的文章记录。
//
// 约束：Title 与 URL 必须非空（二者没有合理默认值）；其余字段逐项容错降级。
type Story struct {
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	Author       string   `json:"author,omitempty"`
	AuthorURL    string   `json:"author_url,omitempty"`
	Category     string   `json:"category,omitempty"`
	PublishedAt  string   `json:"published_at,omitempty"` // ISO-8601；页面不提供时为空
	ReadTime     int      `json:"read_time"`
	Tags         []string `json:"tags"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Upvotes      int      `json:"upvotes"`
	StoryID      string   `json:"story_id,omitempty"`
}
