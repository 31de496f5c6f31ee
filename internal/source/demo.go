package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/social"
)

// DemoName is the registry name of the deterministic in-memory source.
const DemoName = "demo"

// demoLocations cycle through generated posts so geographic aggregation
// has something to chew on.
var demoLocations = []string{
	"New York, NY",
	"California, USA",
	"London, UK",
	"Toronto, Canada",
	"Sydney, Australia",
}

// demoTemplates pair a text shape with an engagement profile. The final
// template is deliberately spammy so bot filtering is observable.
var demoTemplates = []struct {
	text  string
	likes int
}{
	{"I love %s, it is amazing and the community is wonderful", 240},
	{"%s is great, really impressive progress this year", 120},
	{"Mixed feelings about %s, some parts are good and some are broken", 45},
	{"The state of %s right now is terrible, everything keeps failing", 60},
	{"Honest question about %s, where do I start?", 15},
	{"%s!!! click here for an amazing deal, follow me, act now #win #rich #fast #easy #money #now", 50000},
}

// Demo is a deterministic source for tests, demos, and local development:
// the same query always yields the same posts, no network involved.
type Demo struct {
	cfg Config
}

// NewDemo builds the demo source from cfg.
func NewDemo(cfg Config) *Demo {
	return &Demo{cfg: cfg.withDefaults()}
}

// Name implements Source.
func (d *Demo) Name() string { return DemoName }

// Available implements Source.
func (d *Demo) Available() bool { return d.cfg.Enabled }

// RateLimit implements Source.
func (d *Demo) RateLimit() RateLimitInfo {
	return RateLimitInfo{RequestsPerHour: d.cfg.RateLimit, Remaining: d.cfg.RateLimit}
}

// Search implements Source with generated posts derived from the query.
func (d *Demo) Search(ctx context.Context, query social.SearchQuery) ([]social.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count := clampLimit(query.Limit)
	seed := hashString(query.Query)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	posts := make([]social.Post, 0, count)
	for i := 0; i < count; i++ {
		tmpl := demoTemplates[(int(seed)+i)%len(demoTemplates)]
		text := NormalizeText(fmt.Sprintf(tmpl.text, query.Query))
		author := fmt.Sprintf("demo_user_%d", (int(seed)+i)%17)
		posts = append(posts, social.Post{
			ID:        fmt.Sprintf("demo-%08x-%d", seed, i),
			Text:      text,
			Timestamp: base.Add(-time.Duration(i) * time.Hour),
			Author:    author,
			AuthorID:  author,
			Location:  demoLocations[(int(seed)+i)%len(demoLocations)],
			Engagement: social.EngagementStats{
				Likes:    tmpl.likes,
				Comments: tmpl.likes / 10,
			},
			Source:   DemoName,
			Language: "en",
			Hashtags: ExtractHashtags(text),
			Mentions: ExtractMentions(text),
			URLs:     ExtractURLs(text),
		})
	}
	return posts, nil
}

// UserPosts implements Source.
func (d *Demo) UserPosts(ctx context.Context, userID string, limit int) ([]social.Post, error) {
	posts, err := d.Search(ctx, social.SearchQuery{Query: userID, Limit: clampLimit(limit)})
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Author = userID
		posts[i].AuthorID = userID
	}
	return posts, nil
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
