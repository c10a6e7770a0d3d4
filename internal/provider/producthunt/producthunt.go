package producthunt

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

// Provider 实现 Product Hunt stories 页面的抓取与 HTML 解析。
//
// 约束：
// - 与 trending 同一套容错哲学：逐字段降级，只有 title 或 url 缺失才丢弃整条
// - category 由调用方请求决定，统一附加到同一次抓取的所有记录上
// - Parse 必须是纯函数
type Provider struct {
	// BaseURL 允许测试时指向 httptest server；为空时使用 https://www.producthunt.com。
	BaseURL string
}

func (Provider) Name() string { return "producthunt" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://www.producthunt.com"
	}
	return strings.TrimRight(u, "/")
}

// PageURL 由规范化查询拼出 stories 页面地址：
// https://www.producthunt.com/stories[?category=<category>]
func (p Provider) PageURL(q domain.StoriesQuery) string {
	u := p.baseURL() + "/stories"
	if q.Category != "" {
		u += "?category=" + url.QueryEscape(q.Category)
	}
	return u
}

// Fetch 抓取 stories 页面原始 HTML。
func (p Provider) Fetch(ctx context.Context, c *http.Client, q domain.StoriesQuery) ([]byte, error) {
	return providerx.FetchURL(ctx, c, p.PageURL(q))
}

var (
	storyIDRE  = regexp.MustCompile(`^story-item-(\d+)$`)
	readTimeRE = regexp.MustCompile(`(\d+)\s*min\s*read`)
	// socialRE 匹配外部个人主页（作者链接优先取社交账号）。
	socialRE = regexp.MustCompile(`(?i)linkedin\.com|twitter\.com|github\.com`)
)

// Parse 把 stories 页面 HTML 解析为文章记录序列（按页面出现顺序，最多 max 条）。
//
// 重复块优先按 data-test="story-item-<id>" 定位；站点改版丢掉该标记时回退到
// class 含 styles_item__ 的块。找不到任何块返回空序列，不是错误。
func (p Provider) Parse(html []byte, category string, max int) ([]domain.Story, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &providerx.ParseError{URL: p.baseURL() + "/stories", Err: err}
	}
	if max < 0 {
		max = 0
	}

	blocks := doc.Find("div[data-test^='story-item-']")
	if blocks.Length() == 0 {
		blocks = doc.Find("div[class*='styles_item__']")
	}

	stories := make([]domain.Story, 0, max)
	blocks.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(stories) >= max {
			return false
		}
		if st, ok := p.extractStory(s, category); ok {
			stories = append(stories, st)
		}
		return true
	})
	return stories, nil
}

// extractStory 提取单条文章记录；title 或 url 缺失时返回 ok=false（整条丢弃）。
func (p Provider) extractStory(s *goquery.Selection, category string) (domain.Story, bool) {
	st := domain.Story{
		Category: category,
		Tags:     []string{},
	}
	if category != "" {
		st.Tags = []string{category}
	}

	if dt, ok := s.Attr("data-test"); ok {
		if m := storyIDRE.FindStringSubmatch(strings.TrimSpace(dt)); m != nil {
			st.StoryID = m[1]
		}
	}

	title := s.Find("div[class*='font-bold']").FilterFunction(func(_ int, d *goquery.Selection) bool {
		cls, _ := d.Attr("class")
		return strings.Contains(cls, "text-18")
	}).First()
	if title.Length() == 0 {
		title = s.Find("div[class*='font-bold']").First()
	}
	st.Title = providerx.NormSpace(title.Text())
	if st.Title == "" {
		return domain.Story{}, false
	}

	st.URL = p.storyURL(s, title)
	if st.URL == "" {
		return domain.Story{}, false
	}

	p.extractMeta(s, &st)

	img := s.Find("img[class*='styles_headerImage']").First()
	if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
		st.ThumbnailURL = strings.TrimSpace(src)
	} else if srcset, ok := img.Attr("srcset"); ok {
		fields := strings.Fields(srcset)
		if len(fields) > 0 {
			st.ThumbnailURL = strings.TrimSuffix(fields[0], ",")
		}
	}

	return st, true
}

// storyURL 先找标题外层的 /stories/ 锚，再退回块内任意 /stories/ 锚；
// /stories/category/ 形态是分类导航链接，不是文章地址，必须排除。
func (p Provider) storyURL(s, title *goquery.Selection) string {
	if link := title.ParentsFiltered("a").First(); link.Length() > 0 {
		if u := p.resolveStoryHref(link); u != "" {
			return u
		}
	}

	var found string
	s.Find("a[href^='/stories/']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if u := p.resolveStoryHref(a); u != "" {
			found = u
			return false
		}
		return true
	})
	return found
}

func (p Provider) resolveStoryHref(a *goquery.Selection) string {
	href, ok := a.Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "/stories/") || strings.Contains(href, "/category/") {
		return ""
	}
	return p.baseURL() + href
}

// extractMeta 从块内的元信息行（作者 / 阅读时长 / 点赞）逐项容错提取。
func (p Provider) extractMeta(s *goquery.Selection, st *domain.Story) {
	meta := s.Find("div[class*='text-12']").FilterFunction(func(_ int, d *goquery.Selection) bool {
		cls, _ := d.Attr("class")
		return strings.Contains(cls, "text-light-gray")
	}).First()
	if meta.Length() == 0 {
		return
	}

	author := meta.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		return socialRE.MatchString(href)
	}).First()
	if author.Length() == 0 {
		author = meta.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			// 分类导航链接不是作者。
			return !strings.Contains(href, "/category/")
		}).First()
	}
	if author.Length() > 0 {
		st.Author = providerx.NormSpace(author.Text())
		if href, ok := author.Attr("href"); ok {
			href = strings.TrimSpace(href)
			if strings.HasPrefix(href, "/@") {
				st.AuthorURL = p.baseURL() + href
			} else {
				st.AuthorURL = href
			}
		}
	}

	text := meta.Text()
	if m := readTimeRE.FindStringSubmatch(text); m != nil {
		st.ReadTime = providerx.ParseCount(m[1])
	}

	upvote := s.Find("[data-test='vote-button']").First()
	if upvote.Length() == 0 {
		upvote = s.Find("[class*='upvote']").First()
	}
	if upvote.Length() > 0 {
		st.Upvotes = providerx.ParseCount(upvote.Text())
	}
}
