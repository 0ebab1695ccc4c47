package targets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize_DedupTrimTracking(t *testing.T) {
	in := []Target{
		{URL: "https://medium.com/@a/story-1?source=rss----1&utm_medium=x#comments"},
		{URL: "https://MEDIUM.com:443/@a/story-1"},
		{URL: "ftp://medium.com/file"},
		{URL: "not a url"},
		{URL: "https://medium.com/@a/story-2?page=2", Label: "second"},
	}
	out := Normalize(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 after dedup, got %d: %+v", len(out), out)
	}
	if out[0].URL != "https://medium.com/@a/story-1" {
		t.Fatalf("unexpected normalized url: %q", out[0].URL)
	}
	if out[1].URL != "https://medium.com/@a/story-2?page=2" || out[1].Label != "second" {
		t.Fatalf("unexpected second target: %+v", out[1])
	}
}

func TestSelect_PerHostCapAndTotal(t *testing.T) {
	in := FromURLs([]string{
		"https://a.com/1", "https://a.com/2", "https://a.com/3",
		"https://b.com/1", "https://b.com/2",
	})
	out := Select(in, Options{PerHost: 2})
	if len(out) != 4 {
		t.Fatalf("expected 4 with per-host cap, got %d", len(out))
	}
	if out[2].URL != "https://b.com/1" {
		t.Fatalf("expected input order preserved, got %+v", out)
	}
	if got := Select(in, Options{MaxTotal: 3}); len(got) != 3 {
		t.Fatalf("expected max total 3, got %d", len(got))
	}
}

func TestSelect_AllowDeny(t *testing.T) {
	in := FromURLs([]string{
		"https://medium.com/@a/x",
		"https://blog.medium.com/y",
		"https://towardsdatascience.com/z",
		"https://notmedium.com/w",
	})
	out := Select(in, Options{Allow: []string{"medium.com"}})
	if len(out) != 2 {
		t.Fatalf("expected medium.com and subdomain, got %+v", out)
	}
	out = Select(in, Options{Allow: []string{"medium.com"}, Deny: []string{".blog.medium.com"}})
	if len(out) != 1 || out[0].URL != "https://medium.com/@a/x" {
		t.Fatalf("expected deny to win, got %+v", out)
	}
}

func TestParse_TextAndJSON(t *testing.T) {
	text := "# reading list\nhttps://medium.com/a\n\n  https://medium.com/b # later\n"
	got, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("parse text: %v", err)
	}
	if len(got) != 2 || got[1].URL != "https://medium.com/b" {
		t.Fatalf("unexpected text targets: %+v", got)
	}

	js := `["https://medium.com/a", {"url": "https://medium.com/b", "label": "b"}, {"url": ""}]`
	got, err = Parse([]byte(js))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(got) != 2 || got[1].Label != "b" {
		t.Fatalf("unexpected json targets: %+v", got)
	}
	if _, err := Parse([]byte(`[1, 2]`)); err == nil {
		t.Fatalf("expected error for invalid entries")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(p, []byte("https://medium.com/a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(p)
	if err != nil || len(got) != 1 {
		t.Fatalf("load: %v %+v", err, got)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadFile(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
