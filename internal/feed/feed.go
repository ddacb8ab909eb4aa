// Package feed retrieves the message history of a channel via cursor
// pagination. The order in which messages come back follows the cursor
// (newest first as the API delivers pages); callers that need a stable
// order must sort by ID themselves.
package feed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// MessageID is a snowflake ordering key. Lower means older.
type MessageID uint64

// Message is one immutable entry of a channel feed.
type Message struct {
	ID          MessageID
	AuthorID    string
	AuthorIsBot bool
	Content     string
	Timestamp   time.Time
	HasThread   bool
}

// Source serves single pages of channel history, newest first, starting
// before the given cursor (zero cursor = newest page).
type Source interface {
	FetchPage(ctx context.Context, channelID string, before MessageID, limit int) ([]Message, error)
}

const pageLimit = 100

// Reader materializes channel feeds from a Source. Page requests are
// paced through a rate limiter so a full-history scan cannot hammer
// the API.
type Reader struct {
	src     Source
	limiter *rate.Limiter
}

func NewReader(src Source) *Reader {
	return &Reader{
		src:     src,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// FetchAll retrieves the complete history of a channel. Any page error
// aborts the whole fetch; no partial result is returned.
func (r *Reader) FetchAll(ctx context.Context, channelID string) ([]Message, error) {
	var all []Message
	var before MessageID

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := r.src.FetchPage(ctx, channelID, before, pageLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch page of %s before %d: %w", channelID, before, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		before = page[len(page)-1].ID
	}

	return all, nil
}

// Latest retrieves the newest messages of a channel, up to limit.
func (r *Reader) Latest(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	page, err := r.src.FetchPage(ctx, channelID, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch latest of %s: %w", channelID, err)
	}
	return page, nil
}
