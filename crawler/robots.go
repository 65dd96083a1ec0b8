package crawler

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsVerdict is the outcome of a robots check against a single URL.
type RobotsVerdict int

const (
	// Proceed means the path is allowed and any crawl-delay has elapsed.
	Proceed RobotsVerdict = iota
	// CrawlDelay means the path is allowed but the origin's crawl-delay has
	// not yet elapsed since the last visit.
	CrawlDelay
	// ForbiddenPath means robots.txt disallows the path for the wildcard agent.
	ForbiddenPath
)

const robotsShardCount = 32

// robotsEntry holds parsed rules for one origin plus the last successful
// fetch time against that origin, used for crawl-delay bookkeeping.
type robotsEntry struct {
	data        *robotstxt.RobotsData
	lastVisited time.Time
	hasVisited  bool
}

type robotsShard struct {
	mu      sync.RWMutex
	entries map[string]*robotsEntry
}

// RobotsCache is a sharded concurrent map from host-origin (scheme://host)
// to parsed robots.txt rules. Writers block only the shard they hash into,
// never the whole cache.
type RobotsCache struct {
	shards [robotsShardCount]*robotsShard
}

// NewRobotsCache builds an empty cache with all shards initialized.
func NewRobotsCache() *RobotsCache {
	c := &RobotsCache{}
	for i := range c.shards {
		c.shards[i] = &robotsShard{entries: make(map[string]*robotsEntry)}
	}
	return c
}

func (c *RobotsCache) shardFor(origin string) *robotsShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(origin))
	return c.shards[h.Sum32()%robotsShardCount]
}

// Has reports whether origin already has a cached entry.
func (c *RobotsCache) Has(origin string) bool {
	shard := c.shardFor(origin)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	_, ok := shard.entries[origin]
	return ok
}

// Insert parses robotsTxt under the wildcard user agent and stores it for
// origin. Returns false and leaves the cache unchanged on parse failure.
// First-wins: an existing entry for origin is not overwritten.
func (c *RobotsCache) Insert(origin string, robotsTxt []byte) bool {
	data, err := robotstxt.FromBytes(robotsTxt)
	if err != nil {
		return false
	}
	shard := c.shardFor(origin)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, exists := shard.entries[origin]; exists {
		return true
	}
	shard.entries[origin] = &robotsEntry{data: data}
	return true
}

// CanVisit evaluates fullURL against the cached rules for origin, which
// must already have an entry (callers insert before calling CanVisit).
func (c *RobotsCache) CanVisit(fullURL, origin string) (RobotsVerdict, error) {
	parsed, err := url.Parse(fullURL)
	if err != nil {
		return ForbiddenPath, fmt.Errorf("parse url %q: %w", fullURL, err)
	}

	shard := c.shardFor(origin)
	shard.mu.RLock()
	entry, ok := shard.entries[origin]
	shard.mu.RUnlock()
	if !ok {
		return ForbiddenPath, fmt.Errorf("no robots entry cached for origin %q", origin)
	}

	group := entry.data.FindGroup("*")
	if !group.Test(parsed.Path) {
		return ForbiddenPath, nil
	}

	delay := group.CrawlDelay
	if delay <= 0 || !entry.hasVisited {
		return Proceed, nil
	}
	if time.Since(entry.lastVisited) < delay {
		return CrawlDelay, nil
	}
	return Proceed, nil
}

// Update records origin as having just been successfully fetched,
// resetting its crawl-delay cooldown.
func (c *RobotsCache) Update(origin string) {
	shard := c.shardFor(origin)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	entry, ok := shard.entries[origin]
	if !ok {
		return
	}
	entry.lastVisited = time.Now()
	entry.hasVisited = true
}

// Origin extracts the scheme://host robots-cache key from a full URL.
func Origin(fullURL string) (string, error) {
	parsed, err := url.Parse(fullURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", fullURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", fullURL)
	}
	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), nil
}
