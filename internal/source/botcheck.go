package source

import (
	"strings"

	"github.com/pulsewatch/pulsewatch/internal/social"
)

// spamPhrases are template fragments typical of automated accounts.
var spamPhrases = []string{
	"click here",
	"follow me",
	"check out",
	"amazing deal",
	"limited time",
	"act now",
	"free money",
	"get rich",
}

// shortPostLength is the text length below which very high engagement
// counts look suspicious.
const shortPostLength = 50

// BotScore estimates how likely a post comes from a human, in [0,1] where
// 1 is definitely human. The heuristics penalize engagement out of
// proportion to content, hashtag stuffing, mention spam, and template
// phrases.
func BotScore(post social.Post) float64 {
	score := 1.0

	if post.Engagement.Likes > 10000 && len(post.Text) < shortPostLength {
		score -= 0.3
	}
	if strings.Count(post.Text, "#") > 5 {
		score -= 0.2
	}
	if len(post.Mentions) > 3 {
		score -= 0.2
	}

	lower := strings.ToLower(post.Text)
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			score -= 0.1
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// FilterPosts stamps each post with its bot-detection score and drops
// those below minConfidence.
func FilterPosts(posts []social.Post, minConfidence float64) []social.Post {
	filtered := make([]social.Post, 0, len(posts))
	for _, post := range posts {
		post.Confidence = BotScore(post)
		if post.Confidence >= minConfidence {
			filtered = append(filtered, post)
		}
	}
	return filtered
}
