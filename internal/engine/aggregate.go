package engine

import (
	"sort"

	"github.com/pulsewatch/pulsewatch/internal/social"
)

// RegionStat aggregates sentiment for one location.
type RegionStat struct {
	Location          string                       `json:"location"`
	TotalPosts        int                          `json:"total_posts"`
	AverageConfidence float64                      `json:"average_confidence"`
	Distribution      social.SentimentDistribution `json:"sentiment_distribution"`
}

// TopicStat is one trending hashtag with the mean polarity of the posts
// that carried it.
type TopicStat struct {
	Topic          string  `json:"topic"`
	Mentions       int     `json:"mentions"`
	SentimentScore float64 `json:"sentiment_score"`
}

// Summary is the dashboard roll-up of one analysis result.
type Summary struct {
	Query             string                       `json:"query"`
	TotalPosts        int                          `json:"total_posts"`
	Distribution      social.SentimentDistribution `json:"sentiment_distribution"`
	AverageConfidence float64                      `json:"average_confidence"`
	SourcesUsed       []string                     `json:"sources_used"`
	TopRegions        []RegionStat                 `json:"top_regions"`
	TrendingTopics    []TopicStat                  `json:"trending_topics"`
}

// unknownLocation buckets posts whose source gave no location.
const unknownLocation = "unknown"

// GeographicAggregate groups the result's posts by location. Regions are
// ordered by post count descending, name ascending on ties.
func GeographicAggregate(result *social.AnalysisResult) []RegionStat {
	sentimentByPost := make(map[string]social.SentimentResult, len(result.Sentiments))
	for _, s := range result.Sentiments {
		sentimentByPost[s.PostID] = s
	}

	byLocation := make(map[string]*RegionStat)
	confidenceSum := make(map[string]float64)
	for _, post := range result.Posts {
		location := post.Location
		if location == "" {
			location = unknownLocation
		}
		stat, ok := byLocation[location]
		if !ok {
			stat = &RegionStat{Location: location}
			byLocation[location] = stat
		}
		stat.TotalPosts++
		if s, scored := sentimentByPost[post.ID]; scored {
			stat.Distribution.Add(s.Sentiment)
			confidenceSum[location] += s.Confidence
		}
	}

	regions := make([]RegionStat, 0, len(byLocation))
	for location, stat := range byLocation {
		if scored := stat.Distribution.Total(); scored > 0 {
			stat.AverageConfidence = confidenceSum[location] / float64(scored)
		}
		regions = append(regions, *stat)
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].TotalPosts != regions[j].TotalPosts {
			return regions[i].TotalPosts > regions[j].TotalPosts
		}
		return regions[i].Location < regions[j].Location
	})
	return regions
}

// TrendingTopics counts hashtag mentions across the result's posts and
// attaches the mean polarity of the posts carrying each tag. At most n
// topics are returned, ordered by mentions descending, tag ascending.
func TrendingTopics(result *social.AnalysisResult, n int) []TopicStat {
	polarityByPost := make(map[string]float64, len(result.Sentiments))
	for _, s := range result.Sentiments {
		polarityByPost[s.PostID] = s.Polarity
	}

	mentions := make(map[string]int)
	polaritySum := make(map[string]float64)
	for _, post := range result.Posts {
		seen := make(map[string]struct{}, len(post.Hashtags))
		for _, tag := range post.Hashtags {
			// A repeated tag in one post counts once.
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			mentions[tag]++
			polaritySum[tag] += polarityByPost[post.ID]
		}
	}

	topics := make([]TopicStat, 0, len(mentions))
	for tag, count := range mentions {
		topics = append(topics, TopicStat{
			Topic:          tag,
			Mentions:       count,
			SentimentScore: polaritySum[tag] / float64(count),
		})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Mentions != topics[j].Mentions {
			return topics[i].Mentions > topics[j].Mentions
		}
		return topics[i].Topic < topics[j].Topic
	})
	if n > 0 && len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

// Summarize builds the dashboard roll-up, keeping the top n regions and
// topics.
func Summarize(result *social.AnalysisResult, n int) Summary {
	regions := GeographicAggregate(result)
	if n > 0 && len(regions) > n {
		regions = regions[:n]
	}
	return Summary{
		Query:             result.Query,
		TotalPosts:        result.TotalPosts,
		Distribution:      result.Distribution,
		AverageConfidence: result.AverageConfidence,
		SourcesUsed:       result.SourcesUsed,
		TopRegions:        regions,
		TrendingTopics:    TrendingTopics(result, n),
	}
}
