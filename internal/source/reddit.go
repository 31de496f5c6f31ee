package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/social"
)

// RedditName is the registry name of the Reddit adapter.
const RedditName = "reddit"

const (
	redditBaseURL   = "https://www.reddit.com"
	redditUserAgent = "pulsewatch/1.0"
)

// Reddit reads public submissions through the unauthenticated JSON API.
type Reddit struct {
	cfg     Config
	client  *http.Client
	baseURL string
}

// NewReddit builds the Reddit adapter from cfg.
func NewReddit(cfg Config) *Reddit {
	cfg = cfg.withDefaults()
	return &Reddit{
		cfg:     cfg,
		client:  cfg.httpClient(),
		baseURL: redditBaseURL,
	}
}

// Name implements Source.
func (r *Reddit) Name() string { return RedditName }

// Available implements Source; the public JSON API needs no credentials.
func (r *Reddit) Available() bool { return r.cfg.Enabled }

// RateLimit implements Source.
func (r *Reddit) RateLimit() RateLimitInfo {
	return RateLimitInfo{
		RequestsPerHour: r.cfg.RateLimit,
		Remaining:       r.cfg.RateLimit,
	}
}

// Search implements Source using the sitewide search listing.
func (r *Reddit) Search(ctx context.Context, query social.SearchQuery) ([]social.Post, error) {
	params := url.Values{
		"q":               {query.Query},
		"limit":           {strconv.Itoa(clampLimit(query.Limit))},
		"sort":            {"relevance"},
		"type":            {"link"},
		"include_over_18": {"false"},
	}
	return r.fetch(ctx, r.baseURL+"/search.json", params)
}

// UserPosts implements Source using the user's submitted listing.
func (r *Reddit) UserPosts(ctx context.Context, userID string, limit int) ([]social.Post, error) {
	params := url.Values{
		"limit": {strconv.Itoa(clampLimit(limit))},
		"sort":  {"new"},
	}
	endpoint := fmt.Sprintf("%s/user/%s/submitted.json", r.baseURL, url.PathEscape(userID))
	return r.fetch(ctx, endpoint, params)
}

func (r *Reddit) fetch(ctx context.Context, endpoint string, params url.Values) ([]social.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building reddit request: %w", err)
	}
	req.Header.Set("User-Agent", redditUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode)
	}

	var payload redditListing
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding reddit response: %w", err)
	}
	return payload.toPosts(), nil
}

// redditListing mirrors the slice of the listing payload the adapter needs.
type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				CreatedUTC  float64 `json:"created_utc"`
				Author      string  `json:"author"`
				Subreddit   string  `json:"subreddit"`
				Score       int     `json:"score"`
				Ups         int     `json:"ups"`
				NumComments int     `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (l redditListing) toPosts() []social.Post {
	posts := make([]social.Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		item := child.Data
		text := item.Title
		if item.SelfText != "" {
			text += " " + item.SelfText
		}
		text = NormalizeText(text)

		posts = append(posts, social.Post{
			ID:        item.ID,
			Text:      text,
			Timestamp: time.Unix(int64(item.CreatedUTC), 0).UTC(),
			Author:    item.Author,
			AuthorID:  item.Author,
			Location:  item.Subreddit, // closest stable locality reddit offers
			Engagement: social.EngagementStats{
				Likes:    item.Ups,
				Shares:   item.Score,
				Comments: item.NumComments,
			},
			Source:   RedditName,
			Hashtags: ExtractHashtags(text),
			Mentions: ExtractMentions(text),
			URLs:     ExtractURLs(text),
		})
	}
	return posts
}
