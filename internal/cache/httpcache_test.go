package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	meta := HTTPEntry{URL: "https://medium.com/a", FinalURL: "https://medium.com/a?x=1", ContentType: "text/html", ETag: `"v1"`}
	if err := c.Save(ctx, meta, []byte("<html>a</html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.LoadMeta(ctx, meta.URL)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if got.ETag != `"v1"` || got.FinalURL != meta.FinalURL || got.SavedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", got)
	}
	body, err := c.LoadBody(ctx, meta.URL)
	if err != nil || string(body) != "<html>a</html>" {
		t.Fatalf("unexpected body %q, err=%v", body, err)
	}
	if _, err := c.LoadMeta(ctx, "https://medium.com/missing"); err == nil {
		t.Fatalf("expected miss for unknown url")
	}
}

func TestHTTPCache_RequiresDirAndURL(t *testing.T) {
	t.Parallel()
	var c HTTPCache
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://a"}, nil); err == nil {
		t.Fatalf("expected error without dir")
	}
	c.Dir = t.TempDir()
	if err := c.Save(context.Background(), HTTPEntry{}, nil); err == nil {
		t.Fatalf("expected error without url")
	}
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	url := "https://example.com/x"
	if err := c.Save(context.Background(), HTTPEntry{URL: url, ContentType: "text/html"}, []byte("hello")); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	for _, p := range []string{c.bodyPath(key(url)), c.metaPath(key(url))} {
		finfo, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := finfo.Mode() & 0o777; got != 0o600 {
			t.Fatalf("%s mode = %o, want 0600", p, got)
		}
	}
}

func TestHTTPCache_LRUEnforcement_Count(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	base := time.Now().Add(-time.Hour)
	for i, u := range urls {
		if err := c.Save(context.Background(), HTTPEntry{URL: u}, []byte(fmt.Sprintf("body-%d", i))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		stamp := base.Add(time.Duration(i) * time.Minute)
		_ = os.Chtimes(c.bodyPath(key(u)), stamp, stamp)
	}
	// touch the first so the second becomes least recently used
	if _, err := c.LoadBody(context.Background(), urls[0]); err != nil {
		t.Fatalf("touch body: %v", err)
	}
	removed, err := EnforceHTTPCacheLimits(dir, 0, 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), urls[1]); err == nil {
		t.Fatalf("expected least recently used entry evicted")
	}
	if _, err := c.LoadBody(context.Background(), urls[0]); err != nil {
		t.Fatalf("recently used entry evicted: %v", err)
	}
}

func TestHTTPCache_LRUEnforcement_Bytes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://b.com/1"}, []byte("1111111111")); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	_ = os.Chtimes(c.bodyPath(key("https://b.com/1")), old, old)
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://b.com/2"}, []byte("22")); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	removed, err := EnforceHTTPCacheLimits(dir, 5, 0)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), "https://b.com/2"); err != nil {
		t.Fatalf("small recent entry should survive: %v", err)
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	if err := c.Save(ctx, HTTPEntry{URL: "https://old", SavedAt: time.Now().Add(-48 * time.Hour)}, []byte("o")); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := c.Save(ctx, HTTPEntry{URL: "https://new"}, []byte("n")); err != nil {
		t.Fatalf("save new: %v", err)
	}
	// malformed meta is skipped, not fatal
	if err := os.WriteFile(filepath.Join(dir, "junk.meta.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadMeta(ctx, "https://new"); err != nil {
		t.Fatalf("fresh entry purged: %v", err)
	}
	if n, _ := PurgeHTTPCacheByAge(dir, 0); n != 0 {
		t.Fatalf("zero max age must be a no-op")
	}
}

func TestClearDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "c")
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), HTTPEntry{URL: "https://x"}, []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries, err=%v", len(entries), err)
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
