package source

import (
	"regexp"
	"strings"
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	urlPattern     = regexp.MustCompile(`https?://[^\s]+`)
)

// NormalizeText collapses whitespace and strips control characters that
// break downstream processing.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.Join(strings.Fields(text), " ")
}

// ExtractHashtags returns the lowercased #tags found in text.
func ExtractHashtags(text string) []string {
	tags := hashtagPattern.FindAllString(text, -1)
	for i, tag := range tags {
		tags[i] = strings.ToLower(tag)
	}
	return tags
}

// ExtractMentions returns the lowercased @mentions found in text.
func ExtractMentions(text string) []string {
	mentions := mentionPattern.FindAllString(text, -1)
	for i, m := range mentions {
		mentions[i] = strings.ToLower(m)
	}
	return mentions
}

// ExtractURLs returns the http(s) URLs found in text.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}
