// Package links extracts streaming-service track links from message text.
package links

import (
	"regexp"

	"sotdbot/internal/feed"
)

// trackPattern matches both known Spotify link shapes. A match ends at
// whitespace or the query string, so the captured token is stable enough
// for exact-string comparison.
var trackPattern = regexp.MustCompile(`https?://(?:open\.spotify\.com/track/[^\s?]+|spotify\.link/[^\s?]+)`)

// Extract returns every track link in text, in occurrence order.
func Extract(text string) []string {
	return trackPattern.FindAllString(text, -1)
}

// CollectSet flattens extraction across messages into a membership set.
func CollectSet(msgs []feed.Message) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range msgs {
		for _, l := range Extract(m.Content) {
			set[l] = struct{}{}
		}
	}
	return set
}
