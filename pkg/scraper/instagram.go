// Package scraper 从 Instagram 抓取某个 profile 的帖子元数据。
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/log"

	"github.com/gocolly/colly/v2"
)

// ErrProfileNotFound 表示 profile 不存在或不可访问。
var ErrProfileNotFound = errors.New("profile not found")

// Post 是一条帖子的原始互动数据。
type Post struct {
	MediaID  int64
	IsVideo  bool
	Likes    int64
	Comments int64
	TakenAt  time.Time
}

// Profile 是一次抓取的结果。
type Profile struct {
	Username   string
	UserID     string
	MediaCount int
	Posts      []Post
}

// Scraper 定义了抓取 profile 帖子的接口。
type Scraper interface {
	FetchProfile(ctx context.Context, username string) (*Profile, error)
}

type instagramScraper struct {
	cfg config.ScraperConfig
}

// NewInstagramScraper 创建一个基于 colly 的 Instagram 抓取器。
func NewInstagramScraper(cfg config.ScraperConfig) Scraper {
	return &instagramScraper{cfg: cfg}
}

type webProfileResponse struct {
	Data struct {
		User *struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Timeline struct {
				Count    int `json:"count"`
				PageInfo struct {
					HasNextPage bool   `json:"has_next_page"`
					EndCursor   string `json:"end_cursor"`
				} `json:"page_info"`
				Edges []struct {
					Node timelineNode `json:"node"`
				} `json:"edges"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

type countField struct {
	Count int64 `json:"count"`
}

type timelineNode struct {
	ID            string      `json:"id"`
	IsVideo       bool        `json:"is_video"`
	TakenAt       int64       `json:"taken_at_timestamp"`
	LikedBy       *countField `json:"edge_liked_by"`
	PreviewLike   *countField `json:"edge_media_preview_like"`
	MediaComments countField  `json:"edge_media_to_comment"`
}

type feedResponse struct {
	Items []struct {
		PK           int64 `json:"pk"`
		MediaType    int   `json:"media_type"`
		LikeCount    int64 `json:"like_count"`
		CommentCount int64 `json:"comment_count"`
		TakenAt      int64 `json:"taken_at"`
	} `json:"items"`
	MoreAvailable bool   `json:"more_available"`
	NextMaxID     string `json:"next_max_id"`
}

// mediaTypeVideo 是 feed 接口中视频帖子的 media_type。
const mediaTypeVideo = 2

// FetchProfile 抓取 profile 信息及其帖子。首屏来自 web_profile_info，后续分页来自 feed 接口。
func (s *instagramScraper) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimSpace(username)
	log.Infof("[Scraper] 开始抓取 profile: %s", username)

	c, st := s.newCollector(ctx)

	var info webProfileResponse
	infoURL := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s", s.cfg.APIBaseURL, url.QueryEscape(username))
	if err := s.fetchJSON(c, st, infoURL, &info, ErrProfileNotFound); err != nil {
		return nil, err
	}
	user := info.Data.User
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}

	profile := &Profile{
		Username:   username,
		UserID:     user.ID,
		MediaCount: user.Timeline.Count,
	}
	seen := make(map[int64]struct{})
	add := func(p Post) bool {
		if _, ok := seen[p.MediaID]; ok {
			return true
		}
		seen[p.MediaID] = struct{}{}
		profile.Posts = append(profile.Posts, p)
		return s.cfg.MaxPosts <= 0 || len(profile.Posts) < s.cfg.MaxPosts
	}

	for _, edge := range user.Timeline.Edges {
		post, err := edge.Node.toPost()
		if err != nil {
			return nil, err
		}
		if !add(post) {
			return profile, nil
		}
	}

	more := user.Timeline.PageInfo.HasNextPage && len(profile.Posts) > 0
	maxID := ""
	if more {
		maxID = fmt.Sprintf("%d_%s", profile.Posts[len(profile.Posts)-1].MediaID, user.ID)
	}
	for more {
		var page feedResponse
		feedURL := fmt.Sprintf("%s/api/v1/feed/user/%s/?count=33&max_id=%s", s.cfg.APIBaseURL, user.ID, url.QueryEscape(maxID))
		if err := s.fetchJSON(c, st, feedURL, &page, nil); err != nil {
			return nil, err
		}
		log.Infof("[Scraper] 分页返回 %d 条帖子, 已累计 %d/%d", len(page.Items), len(profile.Posts), profile.MediaCount)
		for _, item := range page.Items {
			post := Post{
				MediaID:  item.PK,
				IsVideo:  item.MediaType == mediaTypeVideo,
				Likes:    item.LikeCount,
				Comments: item.CommentCount,
				TakenAt:  time.Unix(item.TakenAt, 0).UTC(),
			}
			if !add(post) {
				return profile, nil
			}
		}
		more = page.MoreAvailable && page.NextMaxID != "" && len(page.Items) > 0
		maxID = page.NextMaxID
	}

	log.Infof("[Scraper] profile %s 抓取完成, 共 %d 条帖子", username, len(profile.Posts))
	return profile, nil
}

func (n timelineNode) toPost() (Post, error) {
	id, err := strconv.ParseInt(n.ID, 10, 64)
	if err != nil {
		return Post{}, fmt.Errorf("invalid media id %q: %w", n.ID, err)
	}
	likes := int64(0)
	switch {
	case n.LikedBy != nil:
		likes = n.LikedBy.Count
	case n.PreviewLike != nil:
		likes = n.PreviewLike.Count
	}
	return Post{
		MediaID:  id,
		IsVideo:  n.IsVideo,
		Likes:    likes,
		Comments: n.MediaComments.Count,
		TakenAt:  time.Unix(n.TakenAt, 0).UTC(),
	}, nil
}

// fetchState 保存最近一次请求的响应，由 collector 回调写入。
type fetchState struct {
	body   []byte
	status int
}

func (s *instagramScraper) newCollector(ctx context.Context) (*colly.Collector, *fetchState) {
	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.IgnoreRobotsTxt = true
	if s.cfg.Timeout > 0 {
		c.SetRequestTimeout(s.cfg.Timeout)
	}

	st := &fetchState{}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
		r.Headers.Set("X-IG-App-ID", s.cfg.AppID)
		r.Headers.Set("Referer", s.cfg.WebBaseURL+"/")
		if s.cfg.SessionID != "" {
			r.Headers.Set("Cookie", "sessionid="+s.cfg.SessionID)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		st.body = r.Body
		st.status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			st.status = r.StatusCode
		}
	})
	return c, st
}

// fetchJSON 同步访问 rawURL 并把 JSON 响应解析到 out。notFound 非 nil 时，404 返回该错误；
// 分页请求传 nil，profile 已确认存在，404 按普通请求失败处理。
func (s *instagramScraper) fetchJSON(c *colly.Collector, st *fetchState, rawURL string, out interface{}, notFound error) error {
	st.body, st.status = nil, 0

	if err := c.Visit(rawURL); err != nil {
		if st.status == http.StatusNotFound && notFound != nil {
			return notFound
		}
		log.Errorf("[Scraper] 请求失败, url: %s, status: %d, error: %v", rawURL, st.status, err)
		return fmt.Errorf("instagram request failed (status %d): %w", st.status, err)
	}
	if err := json.Unmarshal(st.body, out); err != nil {
		return fmt.Errorf("decode instagram response: %w", err)
	}
	return nil
}
