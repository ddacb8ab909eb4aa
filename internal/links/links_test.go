package links

import (
	"reflect"
	"testing"

	"sotdbot/internal/feed"
)

func TestExtractBothShapes(t *testing.T) {
	text := "try https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC and also http://spotify.link/abc123"
	got := Extract(text)
	want := []string{
		"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
		"http://spotify.link/abc123",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestExtractStopsAtQueryString(t *testing.T) {
	got := Extract("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=xyz more text")
	if len(got) != 1 {
		t.Fatalf("expected one link, got %v", got)
	}
	if got[0] != "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC" {
		t.Fatalf("query string not trimmed: %q", got[0])
	}
}

func TestExtractNoLinks(t *testing.T) {
	if got := Extract("no links here, just https://example.com/track/1"); len(got) != 0 {
		t.Fatalf("expected no links, got %v", got)
	}
}

func TestExtractPreservesOrder(t *testing.T) {
	got := Extract("https://spotify.link/b then https://open.spotify.com/track/a")
	want := []string{"https://spotify.link/b", "https://open.spotify.com/track/a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestCollectSet(t *testing.T) {
	msgs := []feed.Message{
		{Content: "https://open.spotify.com/track/a"},
		{Content: "banter, no link"},
		{Content: "https://open.spotify.com/track/a again, plus https://spotify.link/b"},
	}
	set := CollectSet(msgs)
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct links, got %d", len(set))
	}
	if _, ok := set["https://open.spotify.com/track/a"]; !ok {
		t.Fatal("missing track link")
	}
	if _, ok := set["https://spotify.link/b"]; !ok {
		t.Fatal("missing shortlink")
	}
}
