package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"insta-iq-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileJSON = `{
  "data": {
    "user": {
      "id": "42",
      "username": "nasa",
      "edge_owner_to_timeline_media": {
        "count": 3,
        "page_info": {"has_next_page": %t, "end_cursor": "abc"},
        "edges": [
          {"node": {"id": "3101", "is_video": false, "taken_at_timestamp": 1700000000,
                    "edge_liked_by": {"count": 120}, "edge_media_to_comment": {"count": 4}}},
          {"node": {"id": "3102", "is_video": true, "taken_at_timestamp": 1700003600,
                    "edge_media_preview_like": {"count": 80}, "edge_media_to_comment": {"count": 9}}}
        ]
      }
    }
  },
  "status": "ok"
}`

const feedJSON = `{
  "items": [
    {"pk": 3102, "media_type": 2, "like_count": 80, "comment_count": 9, "taken_at": 1700003600},
    {"pk": 3103, "media_type": 1, "like_count": 7, "comment_count": 0, "taken_at": 1700007200}
  ],
  "more_available": false,
  "next_max_id": ""
}`

func newTestScraper(t *testing.T, handler http.HandlerFunc, maxPosts int) Scraper {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewInstagramScraper(config.ScraperConfig{
		UserAgent:  "instaiq-test",
		AppID:      "936619743392459",
		WebBaseURL: srv.URL,
		APIBaseURL: srv.URL,
		Timeout:    5 * time.Second,
		MaxPosts:   maxPosts,
	})
}

func TestFetchProfileFirstPage(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/web_profile_info/", r.URL.Path)
		assert.Equal(t, "nasa", r.URL.Query().Get("username"))
		assert.Equal(t, "936619743392459", r.Header.Get("X-IG-App-ID"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, profileJSON, false)
	}, 0)

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)

	assert.Equal(t, "nasa", profile.Username)
	assert.Equal(t, "42", profile.UserID)
	assert.Equal(t, 3, profile.MediaCount)
	require.Len(t, profile.Posts, 2)
	assert.Equal(t, Post{MediaID: 3101, IsVideo: false, Likes: 120, Comments: 4, TakenAt: time.Unix(1700000000, 0).UTC()}, profile.Posts[0])
	assert.Equal(t, Post{MediaID: 3102, IsVideo: true, Likes: 80, Comments: 9, TakenAt: time.Unix(1700003600, 0).UTC()}, profile.Posts[1])
}

func TestFetchProfileFollowsFeedPagination(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/users/web_profile_info/":
			fmt.Fprintf(w, profileJSON, true)
		case "/api/v1/feed/user/42/":
			assert.Equal(t, "3102_42", r.URL.Query().Get("max_id"))
			fmt.Fprint(w, feedJSON)
		default:
			http.NotFound(w, r)
		}
	}, 0)

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)

	// 3102 在两页中都出现，只保留一次
	require.Len(t, profile.Posts, 3)
	assert.Equal(t, int64(3103), profile.Posts[2].MediaID)
	assert.False(t, profile.Posts[2].IsVideo)
}

func TestFetchProfileMaxPosts(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, profileJSON, true)
	}, 1)

	profile, err := s.FetchProfile(context.Background(), "nasa")
	require.NoError(t, err)
	require.Len(t, profile.Posts, 1)
}

func TestFetchProfileNotFound(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, 0)

	_, err := s.FetchProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFetchProfileNullUser(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"user":null},"status":"ok"}`)
	}, 0)

	_, err := s.FetchProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFetchProfileServerError(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, 0)

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchProfileFeedNotFoundIsRequestFailure(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/web_profile_info/" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, profileJSON, true)
			return
		}
		http.NotFound(w, r)
	}, 0)

	_, err := s.FetchProfile(context.Background(), "nasa")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "404")
}
