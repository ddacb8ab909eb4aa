package rotation

import (
	"sort"
	"strings"

	"sotdbot/internal/feed"
	"sotdbot/internal/links"
)

// Pick is the outcome of a selection: the winning request and the link
// inside it that will be published.
type Pick struct {
	Request feed.Message
	Link    string
}

// SelectNext computes the next unpublished link from the request feed.
// Requests older than ignoreBefore are excluded; the rest are scanned
// oldest first (first requested, first served). A link already present
// in history is never selected. A request authored by whoever was
// credited on the most recent publication is skipped entirely, so the
// same requester cannot win two consecutive runs.
func SelectNext(requests, history []feed.Message, ignoreBefore feed.MessageID) (Pick, bool) {
	eligible := make([]feed.Message, 0, len(requests))
	for _, m := range requests {
		if m.ID >= ignoreBefore {
			eligible = append(eligible, m)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	published := links.CollectSet(history)
	lastRequester := lastPublishedRequester(history, requests)

	for _, req := range eligible {
		for _, link := range links.Extract(req.Content) {
			if _, seen := published[link]; seen {
				continue
			}
			if lastRequester != "" && req.AuthorID == lastRequester {
				continue
			}
			return Pick{Request: req, Link: link}, true
		}
	}
	return Pick{}, false
}

// lastPublishedRequester finds the author of the request behind the most
// recent top-level history entry. Empty when history has no top-level
// entry, the entry carries no link, or no request contains that link.
func lastPublishedRequester(history, requests []feed.Message) string {
	var last *feed.Message
	for i := range history {
		m := &history[i]
		if m.HasThread {
			continue
		}
		if last == nil || m.ID > last.ID {
			last = m
		}
	}
	if last == nil {
		return ""
	}

	published := links.Extract(last.Content)
	if len(published) == 0 {
		return ""
	}

	for _, req := range requests {
		if strings.Contains(req.Content, published[0]) {
			return req.AuthorID
		}
	}
	return ""
}
