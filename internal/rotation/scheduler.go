// Package rotation selects and publishes one requested track per calendar
// day. Two triggers converge on the same entry point: a one-shot run at
// startup and a recurring daily timer. A process-wide run lock makes the
// runs mutually exclusive; the timer is armed at most once per process.
package rotation

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"sotdbot/internal/feed"
	"sotdbot/internal/links"
)

// dailySpec fires once per day at noon, process-local time.
const dailySpec = "0 12 * * *"

// ackEmoji marks a request message whose link has been published.
const ackEmoji = "✅"

// recentWindow is how many of the newest publication-channel messages
// ShouldRun inspects to find the last top-level post.
const recentWindow = 10

// Publisher posts the daily message and acknowledges the source request.
type Publisher interface {
	Post(ctx context.Context, channelID, content string) (feed.MessageID, error)
	React(ctx context.Context, channelID string, messageID feed.MessageID, emoji string) error
}

// Config carries the channel wiring and run modes for the scheduler.
type Config struct {
	RequestChannelID string
	PublishChannelID string
	MinRequestID     feed.MessageID

	AllLinks     bool // log every unpublished link, not just the count
	DryRun       bool // compute the pick without posting or reacting
	SkipRunCheck bool // bypass the once-per-day gate
}

type Scheduler struct {
	reader *feed.Reader
	pub    Publisher
	cfg    Config

	armed atomic.Bool
	cron  *cron.Cron
	runMu sync.Mutex
}

func New(reader *feed.Reader, pub Publisher, cfg Config) *Scheduler {
	return &Scheduler{reader: reader, pub: pub, cfg: cfg}
}

// Arm registers the daily timer. Only the first caller arms it; later
// calls (Ready re-fires on reconnect) log and skip, even when they
// arrive concurrently.
func (s *Scheduler) Arm(ctx context.Context) {
	if !s.armed.CompareAndSwap(false, true) {
		log.Println("[INFO] Rotation timer already armed, skipping")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(dailySpec, func() {
		log.Println("[INFO] Rotation timer fired")
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("[ERR] Scheduled rotation run failed: %v", err)
		}
	}); err != nil {
		log.Printf("[ERR] Failed to register rotation timer: %v", err)
		return
	}
	c.Start()
	s.cron = c
	log.Printf("[INFO] Rotation timer armed (%s)", dailySpec)
}

// Stop halts the daily timer if it was armed.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// ShouldRun reports whether no publication has happened yet today. The
// most recent top-level message in the publication channel decides;
// thread-bearing messages are side discussion, not publications.
func (s *Scheduler) ShouldRun(ctx context.Context) (bool, error) {
	msgs, err := s.reader.Latest(ctx, s.cfg.PublishChannelID, recentWindow)
	if err != nil {
		return false, err
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })

	for _, m := range msgs {
		if m.HasThread {
			continue
		}
		last := dayOf(m.Timestamp)
		today := dayOf(time.Now())
		log.Printf("[DEBUG] Last publication date: %s, today: %s",
			last.Format("2006-01-02"), today.Format("2006-01-02"))
		return last.Before(today), nil
	}

	log.Println("[DEBUG] No top-level publication found yet")
	return true, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// RunOnce performs one complete selection-and-publish sequence. All
// triggers funnel through here; the run lock keeps a slow startup run
// and a timer firing from interleaving.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.cfg.SkipRunCheck {
		ok, err := s.ShouldRun(ctx)
		if err != nil {
			return fmt.Errorf("run check: %w", err)
		}
		if !ok {
			log.Println("[INFO] Song of the day already posted today")
			return nil
		}
	}

	requests, err := s.reader.FetchAll(ctx, s.cfg.RequestChannelID)
	if err != nil {
		return fmt.Errorf("fetch requests: %w", err)
	}
	history, err := s.reader.FetchAll(ctx, s.cfg.PublishChannelID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	pick, ok := SelectNext(requests, history, s.cfg.MinRequestID)
	if !ok {
		log.Println("[WARN] No new song requests found")
		return nil
	}
	log.Printf("[INFO] Next song: %s (requested by %s)", pick.Link, pick.Request.AuthorID)

	if s.cfg.DryRun {
		log.Println("[INFO] Dry run, skipping post and reaction")
		return nil
	}

	if _, err := s.pub.Post(ctx, s.cfg.PublishChannelID, formatDaily(pick, time.Now())); err != nil {
		return fmt.Errorf("post song of the day: %w", err)
	}
	if err := s.pub.React(ctx, s.cfg.RequestChannelID, pick.Request.ID, ackEmoji); err != nil {
		return fmt.Errorf("react to request %d: %w", pick.Request.ID, err)
	}
	return nil
}

func formatDaily(p Pick, now time.Time) string {
	return fmt.Sprintf("# SONG OF THE DAY %s\n%s \n-# Requested by <@%s>",
		now.Format("Jan 02, 2006"), p.Link, p.Request.AuthorID)
}

// ReportNewLinks logs how many request links have not been published
// yet. With AllLinks set, each one is logged individually.
func (s *Scheduler) ReportNewLinks(ctx context.Context) error {
	requests, err := s.reader.FetchAll(ctx, s.cfg.RequestChannelID)
	if err != nil {
		return fmt.Errorf("fetch requests: %w", err)
	}
	history, err := s.reader.FetchAll(ctx, s.cfg.PublishChannelID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	published := links.CollectSet(history)

	count := 0
	for _, m := range requests {
		if m.ID < s.cfg.MinRequestID {
			continue
		}
		for _, l := range links.Extract(m.Content) {
			if _, seen := published[l]; seen {
				continue
			}
			count++
			if s.cfg.AllLinks {
				log.Printf("[INFO] Found new link: %s", l)
			}
		}
	}

	log.Printf("[INFO] There are %d requested links not yet posted", count)
	return nil
}
