package github

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/trendfeed/internal/domain"
	providerx "github.com/John-Robertt/trendfeed/internal/provider"
)

// Provider 实现 GitHub trending 页面的抓取与 HTML 解析。
//
// 约束：
// - Fetch 不做缓存/重试/限速（由上层 httpx/cache 统一控制）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - 逐字段容错：缺失字段降级为默认值；只有 owner/name 解析不出才丢弃整条记录
type Provider struct {
	// BaseURL 允许测试时指向 httptest server；为空时使用 https://github.com。
	BaseURL string
}

func (Provider) Name() string { return "github" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://github.com"
	}
	return strings.TrimRight(u, "/")
}

// PageURL 由规范化查询拼出 trending 页面地址：
// https://github.com/trending[/<language>]?since=<since>
func (p Provider) PageURL(q domain.TrendingQuery) string {
	u := p.baseURL() + "/trending"
	if q.Language != "" {
		u += "/" + url.PathEscape(q.Language)
	}
	return u + "?since=" + url.QueryEscape(q.Since)
}

// Fetch 抓取 trending 页面原始 HTML。
func (p Provider) Fetch(ctx context.Context, c *http.Client, q domain.TrendingQuery) ([]byte, error) {
	return providerx.FetchURL(ctx, c, p.PageURL(q))
}

// maxContributors 是每条记录保留的头像贡献者上限（页面本身展示约 5 个，取前 3）。
const maxContributors = 3

var starsTodayRE = regexp.MustCompile(`\d+\s+stars?\s+(?:today|this week|this month)`)

// avatarHrefRE 匹配用户主页形态的链接（"/username"，不含第二段路径）。
var avatarHrefRE = regexp.MustCompile(`^/[^/]+$`)

// Parse 把 trending 页面 HTML 解析为仓库记录序列（按页面出现顺序，最多 max 条）。
//
// 逐条提取：owner/name（h2 锚的 href，缺失则丢弃该条）、描述、语言 + 色值、
// star/fork 计数、"N stars today" 短语、头像贡献者。到达 max 后短路，不再解析后续块。
// 页面结构变化导致找不到任何重复块时返回空序列，不是错误。
func (p Provider) Parse(html []byte, max int) ([]domain.Repository, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &providerx.ParseError{URL: p.baseURL() + "/trending", Err: err}
	}
	if max < 0 {
		max = 0
	}

	repos := make([]domain.Repository, 0, max)
	doc.Find("article.Box-row").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(repos) >= max {
			return false
		}
		if r, ok := p.extractRepository(s); ok {
			repos = append(repos, r)
		}
		return true
	})
	return repos, nil
}

// extractRepository 提取单条仓库记录；owner/name 解析不出时返回 ok=false（整条丢弃）。
func (p Provider) extractRepository(s *goquery.Selection) (domain.Repository, bool) {
	href, _ := s.Find("h2 a").First().Attr("href")
	path := strings.Trim(strings.TrimSpace(href), "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Repository{}, false
	}
	owner, name := parts[0], parts[1]

	r := domain.Repository{
		Name:         owner + "/" + name,
		URL:          p.baseURL() + "/" + path,
		Owner:        owner,
		Repo:         name,
		Contributors: []domain.Contributor{},
	}

	r.Description = providerx.NormSpace(s.Find("p.col-9").First().Text())

	if lang := strings.TrimSpace(s.Find("span[itemprop='programmingLanguage']").First().Text()); lang != "" {
		r.Language = lang
		r.LanguageColor = languageColor(lang)
	}

	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		h, _ := a.Attr("href")
		switch {
		case strings.HasSuffix(h, "/stargazers"):
			r.Stars = providerx.ParseCount(a.Text())
		case strings.HasSuffix(h, "/forks"), strings.Contains(h, "/network/members"):
			r.Forks = providerx.ParseCount(a.Text())
		}
	})

	// "N stars today"（weekly/monthly 为 "this week/month"）；缺失时保持 0。
	s.Find("span").EachWithBreak(func(_ int, sp *goquery.Selection) bool {
		text := providerx.NormSpace(sp.Text())
		if starsTodayRE.MatchString(text) {
			r.StarsToday = providerx.ParseCount(text)
			return false
		}
		return true
	})

	s.Find("img.avatar").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if len(r.Contributors) >= maxContributors {
			return false
		}
		link := img.ParentsFiltered("a").First()
		h, ok := link.Attr("href")
		if !ok || !avatarHrefRE.MatchString(strings.TrimSpace(h)) {
			return true
		}
		src, _ := img.Attr("src")
		r.Contributors = append(r.Contributors, domain.Contributor{
			Username:  strings.Trim(strings.TrimSpace(h), "/"),
			AvatarURL: strings.TrimSpace(src),
		})
		return true
	})

	return r, true
}
