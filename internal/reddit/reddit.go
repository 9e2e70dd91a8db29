/*
Package reddit fetches top-post listings for a subreddit.

With client credentials the client authenticates application-only against the OAuth API,
otherwise it reads the public JSON listing. Requests are paced and retried on transport
errors, 429 and 5xx responses.
*/
package reddit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/logger"
	"github.com/shanehull/wsbscraper/internal/types"
)

const (
	oauthBaseURL  = "https://oauth.reddit.com"
	publicBaseURL = "https://www.reddit.com"
	tokenURL      = "https://www.reddit.com/api/v1/access_token"
	topPath       = "/r/{subreddit}/top.json"
	maxPageSize   = 100
)

var (
	ErrUnauthorized = errors.New("reddit rejected the credentials")
	ErrNotFound     = errors.New("subreddit not found")
)

type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

// New builds a client from feed settings. Credentials switch it to the OAuth API.
func New(ctx context.Context, cfg config.FeedConfig, log *logger.Logger) *Client {
	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport},
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Info("No Reddit credentials configured, using the public listing")
		return newClient(base, publicBaseURL, cfg, log)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	return newClient(cc.Client(authCtx), oauthBaseURL, cfg, log)
}

func newClient(httpClient *http.Client, baseURL string, cfg config.FeedConfig, log *logger.Logger) *Client {
	rc := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait * 8).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	perMinute := cfg.RequestsPerMin
	if perMinute <= 0 {
		perMinute = 60
	}

	return &Client{
		rc:      rc,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		log:     log,
	}
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string   `json:"kind"`
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	CreatedUTC  float64 `json:"created_utc"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	IsSelf      bool    `json:"is_self"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

func (p postData) toPost() types.Post {
	sec, frac := math.Modf(p.CreatedUTC)
	return types.Post{
		ID:          p.ID,
		CreatedAt:   time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Title:       html.UnescapeString(p.Title),
		Body:        html.UnescapeString(p.Selftext),
		IsSelf:      p.IsSelf,
		Permalink:   p.Permalink,
		Score:       p.Score,
		NumComments: p.NumComments,
	}
}

// TopPosts pages through the top listing until limit posts are collected or the listing ends.
func (c *Client) TopPosts(ctx context.Context, subreddit, timeFilter string, limit int) ([]types.Post, error) {
	var posts []types.Post
	after := ""

	for len(posts) < limit {
		pageSize := min(maxPageSize, limit-len(posts))

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		params := map[string]string{
			"t":     timeFilter,
			"limit": strconv.Itoa(pageSize),
			"count": strconv.Itoa(len(posts)),
		}
		if after != "" {
			params["after"] = after
		}

		var page listing
		resp, err := c.rc.R().
			SetContext(ctx).
			SetPathParams(map[string]string{"subreddit": subreddit}).
			SetQueryParams(params).
			SetResult(&page).
			Get(topPath)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch r/%s top posts: %w", subreddit, err)
		}
		if err := statusError(resp, subreddit); err != nil {
			return nil, err
		}

		kept := 0
		for _, child := range page.Data.Children {
			if child.Kind != "t3" {
				continue
			}
			posts = append(posts, child.Data.toPost())
			kept++
			if len(posts) == limit {
				break
			}
		}

		c.log.WithFields(map[string]interface{}{
			"subreddit": subreddit,
			"page_size": kept,
			"total":     len(posts),
		}).Debug("Fetched listing page")

		after = page.Data.After
		if after == "" || len(page.Data.Children) == 0 {
			break
		}
	}

	return posts, nil
}

func statusError(resp *resty.Response, subreddit string) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: r/%s returned %s", ErrUnauthorized, subreddit, resp.Status())
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: r/%s", ErrNotFound, subreddit)
	case resp.IsError():
		return fmt.Errorf("received non-OK status %s from r/%s", resp.Status(), subreddit)
	}
	return nil
}
