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

// TwitterName is the registry name of the Twitter/X adapter.
const TwitterName = "twitter"

const twitterBaseURL = "https://api.twitter.com/2"

// tweetFields are requested on every search so posts can be normalized
// without follow-up calls.
const tweetFields = "created_at,author_id,public_metrics,lang,geo"

// Twitter reads recent tweets through the v2 search API with bearer auth.
type Twitter struct {
	cfg     Config
	client  *http.Client
	baseURL string
}

// NewTwitter builds the Twitter adapter from cfg.
func NewTwitter(cfg Config) *Twitter {
	cfg = cfg.withDefaults()
	return &Twitter{
		cfg:     cfg,
		client:  cfg.httpClient(),
		baseURL: twitterBaseURL,
	}
}

// Name implements Source.
func (t *Twitter) Name() string { return TwitterName }

// Available implements Source: the adapter needs a bearer token.
func (t *Twitter) Available() bool {
	return t.cfg.Enabled && t.cfg.APIKey != ""
}

// RateLimit implements Source.
func (t *Twitter) RateLimit() RateLimitInfo {
	return RateLimitInfo{
		RequestsPerHour: t.cfg.RateLimit,
		Remaining:       t.cfg.RateLimit,
	}
}

// Search implements Source using the recent-search endpoint.
func (t *Twitter) Search(ctx context.Context, query social.SearchQuery) ([]social.Post, error) {
	params := url.Values{
		"query":        {query.Query},
		"max_results":  {strconv.Itoa(clampLimit(query.Limit))},
		"tweet.fields": {tweetFields},
		"user.fields":  {"username,name,location"},
		"expansions":   {"author_id"},
	}
	return t.fetch(ctx, t.baseURL+"/tweets/search/recent", params)
}

// UserPosts implements Source using the user-timeline endpoint.
func (t *Twitter) UserPosts(ctx context.Context, userID string, limit int) ([]social.Post, error) {
	params := url.Values{
		"max_results":  {strconv.Itoa(clampLimit(limit))},
		"tweet.fields": {tweetFields},
		"user.fields":  {"username,name,location"},
		"expansions":   {"author_id"},
	}
	endpoint := fmt.Sprintf("%s/users/%s/tweets", t.baseURL, url.PathEscape(userID))
	return t.fetch(ctx, endpoint, params)
}

func (t *Twitter) fetch(ctx context.Context, endpoint string, params url.Values) ([]social.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building twitter request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter API returned status %d", resp.StatusCode)
	}

	var payload twitterResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding twitter response: %w", err)
	}
	return payload.toPosts(), nil
}

// twitterResponse mirrors the slice of the v2 payload the adapter needs.
type twitterResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		AuthorID      string    `json:"author_id"`
		Lang          string    `json:"lang"`
		PublicMetrics struct {
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			LikeCount    int `json:"like_count"`
			QuoteCount   int `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Location string `json:"location"`
		} `json:"users"`
	} `json:"includes"`
}

func (r twitterResponse) toPosts() []social.Post {
	users := make(map[string]struct{ username, location string }, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		users[u.ID] = struct{ username, location string }{u.Username, u.Location}
	}

	posts := make([]social.Post, 0, len(r.Data))
	for _, tweet := range r.Data {
		text := NormalizeText(tweet.Text)
		author := tweet.AuthorID
		location := ""
		if u, ok := users[tweet.AuthorID]; ok {
			author = u.username
			location = u.location
		}
		posts = append(posts, social.Post{
			ID:        tweet.ID,
			Text:      text,
			Timestamp: tweet.CreatedAt,
			Author:    author,
			AuthorID:  tweet.AuthorID,
			Location:  location,
			Engagement: social.EngagementStats{
				Likes:    tweet.PublicMetrics.LikeCount,
				Shares:   tweet.PublicMetrics.RetweetCount + tweet.PublicMetrics.QuoteCount,
				Replies:  tweet.PublicMetrics.ReplyCount,
				Comments: tweet.PublicMetrics.ReplyCount,
			},
			Source:   TwitterName,
			Language: tweet.Lang,
			Hashtags: ExtractHashtags(text),
			Mentions: ExtractMentions(text),
			URLs:     ExtractURLs(text),
		})
	}
	return posts
}
