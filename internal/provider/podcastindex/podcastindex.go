// Package podcastindex implements provider.Provider against the
// Podcastindex API.
package podcastindex

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"podshare/internal/cache"
	"podshare/internal/provider"
)

// Client is a Podcastindex API client that implements provider.Provider.
type Client struct {
	httpClient *http.Client
	apiURL     string
	key        string
	secret     string
	cache      *cache.Cache
	now        func() time.Time
}

// New creates a new Podcastindex client. The cache may be nil to disable
// response caching.
func New(apiURL, key, secret string, c *cache.Cache) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     apiURL,
		key:        key,
		secret:     secret,
		cache:      c,
		now:        time.Now,
	}
}

func (c *Client) Name() string { return "podcastindex" }

// FindShows searches Podcastindex by term and returns matching shows.
func (c *Client) FindShows(ctx context.Context, name string) ([]provider.Show, error) {
	cacheKey := "podcastindex-search-" + name + ".json"

	data, ok := c.cached(cacheKey)
	if !ok {
		var err error
		data, err = c.query(ctx, name)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Put(cacheKey, data)
		}
	}

	var searchResp searchResponse
	if err := json.Unmarshal(data, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode podcastindex response: %w", err)
	}

	return parseResults(searchResp.Feeds), nil
}

func (c *Client) cached(key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) query(ctx context.Context, name string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/search/byterm?q=%s", c.apiURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create podcastindex request: %w", err)
	}

	// Podcastindex auth: SHA-1 over key+secret+epoch, epoch echoed in a header.
	epoch := strconv.FormatInt(c.now().Unix(), 10)
	digest := sha1.Sum([]byte(c.key + c.secret + epoch))

	req.Header.Set("X-Auth-Date", epoch)
	req.Header.Set("X-Auth-Key", c.key)
	req.Header.Set("Authorization", fmt.Sprintf("%x", digest))
	req.Header.Set("User-Agent", "podshare/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("podcastindex search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read podcastindex response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("podcastindex search returned %d: %s", resp.StatusCode, body)
	}

	return body, nil
}

func parseResults(feeds []feedItem) []provider.Show {
	var results []provider.Show
	for _, item := range feeds {
		show := provider.Show{
			Title:        item.Title,
			FeedURL:      item.URL,
			Link:         item.Link,
			Description:  item.Description,
			Author:       item.Author,
			EpisodeCount: item.EpisodeCount,
		}
		for _, name := range item.Categories {
			show.Categories = append(show.Categories, name)
		}
		sort.Strings(show.Categories)
		results = append(results, show)
	}
	return results
}

// Podcastindex API response types

type searchResponse struct {
	Status string     `json:"status"`
	Feeds  []feedItem `json:"feeds"`
	Count  int        `json:"count"`
}

type feedItem struct {
	ID           int               `json:"id"`
	Title        string            `json:"title"`
	URL          string            `json:"url"`
	Link         string            `json:"link"`
	Description  string            `json:"description"`
	Author       string            `json:"author"`
	EpisodeCount int               `json:"episodeCount"`
	Categories   map[string]string `json:"categories"`
}
