package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/logger"
)

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		UserAgent:      "wsbscraper-test/1.0",
		Retries:        2,
		RetryWait:      time.Millisecond,
		RequestsPerMin: 60000,
		Timeout:        5 * time.Second,
	}
}

type child struct {
	Kind string         `json:"kind"`
	Data map[string]any `json:"data"`
}

func writeListing(t *testing.T, w http.ResponseWriter, after string, children ...child) {
	t.Helper()
	body := map[string]any{
		"kind": "Listing",
		"data": map[string]any{"after": after, "children": children},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func post(id string, created float64, title string) child {
	return child{Kind: "t3", Data: map[string]any{
		"id":          id,
		"created_utc": created,
		"title":       title,
		"selftext":    "",
		"is_self":     false,
		"permalink":   "/r/wallstreetbets/comments/" + id,
	}}
}

func TestTopPostsPaginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/wallstreetbets/top.json", r.URL.Path)
		assert.Equal(t, "day", r.URL.Query().Get("t"))
		assert.Equal(t, "wsbscraper-test/1.0", r.Header.Get("User-Agent"))

		switch calls.Add(1) {
		case 1:
			assert.Empty(t, r.URL.Query().Get("after"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			writeListing(t, w, "t3_b", post("a", 1706520600, "GME"), post("b", 1706520700, "AMC"))
		default:
			assert.Equal(t, "t3_b", r.URL.Query().Get("after"))
			assert.Equal(t, "8", r.URL.Query().Get("limit"))
			writeListing(t, w, "", post("c", 1706520800, "TSLA"))
		}
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, testFeedConfig(), logger.Nop())
	posts, err := c.TopPosts(context.Background(), "wallstreetbets", "day", 10)
	require.NoError(t, err)

	require.Len(t, posts, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, time.Unix(1706520600, 0).UTC(), posts[0].CreatedAt)
}

func TestTopPostsStopsAtLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeListing(t, w, "t3_more", post("a", 1, "A"), post("b", 2, "B"), post("c", 3, "C"))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, testFeedConfig(), logger.Nop())
	posts, err := c.TopPosts(context.Background(), "wallstreetbets", "day", 2)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTopPostsDecodesSelfPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		self := post("s", 1706520600.5, "GME &amp; AMC")
		self.Data["is_self"] = true
		self.Data["selftext"] = "buy &gt; sell"
		comment := child{Kind: "t1", Data: map[string]any{"id": "skip"}}
		writeListing(t, w, "", self, comment)
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, testFeedConfig(), logger.Nop())
	posts, err := c.TopPosts(context.Background(), "wallstreetbets", "day", 5)
	require.NoError(t, err)

	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "GME & AMC", p.Title)
	assert.Equal(t, "buy > sell", p.Body)
	assert.True(t, p.IsSelf)
	assert.Equal(t, "GME & AMC buy > sell", p.Content())
	assert.Equal(t, time.Unix(1706520600, 500_000_000).UTC(), p.CreatedAt)
}

func TestTopPostsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeListing(t, w, "", post("a", 1, "GME"))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, testFeedConfig(), logger.Nop())
	posts, err := c.TopPosts(context.Background(), "wallstreetbets", "day", 5)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTopPostsStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		is     error
	}{
		{name: "forbidden", status: http.StatusForbidden, is: ErrUnauthorized},
		{name: "unauthorized", status: http.StatusUnauthorized, is: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, is: ErrNotFound},
		{name: "persistent server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(tt.status), tt.status)
			}))
			defer srv.Close()

			c := newClient(srv.Client(), srv.URL, testFeedConfig(), logger.Nop())
			posts, err := c.TopPosts(context.Background(), "wallstreetbets", "day", 5)
			require.Error(t, err)
			assert.Nil(t, posts)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestTopPostsHonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeListing(t, w, "")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newClient(srv.Client(), srv.URL, testFeedConfig(), logger.Nop())
	_, err := c.TopPosts(ctx, "wallstreetbets", "day", 5)
	assert.Error(t, err)
}
