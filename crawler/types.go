// Package crawler implements the concurrent crawl pipeline: a disperser,
// a robots-aware fetcher pool, a single-threaded processor, a gzip WARC
// writer, a bad-URL logger and a progress reporter wired together around
// a cyclic set of channels.
package crawler

import "sync/atomic"

// CrawlEntry is a URL paired with the number of remaining link-expansion
// hops. Depth 0 means fetch but do not expand.
type CrawlEntry struct {
	URL   string
	Depth int
}

// Response is the result of a successful fetch.
type Response struct {
	RemoteIP      string
	HTTPVersion   string
	Status        string
	URL           string
	Body          string
	ContentLength uint64
	Headers       string
	FetchedAt     string // RFC-3339
}

// ScrapEntry carries a fetched Response downstream to the Processor, along
// with the depth its outlinks should inherit.
type ScrapEntry struct {
	Response Response
	Depth    int
}

// Counters holds the five monotonic-ish atomics tracked over a crawl.
// They are observational only, not part of any correctness invariant, so
// relaxed (default Go atomic) ordering is sufficient.
type Counters struct {
	visited int64
	failed  int64
	initial int64
	extra   int64
	queued  int64
}

func (c *Counters) AddInitial(n int64) { atomic.AddInt64(&c.initial, n) }
func (c *Counters) AddExtra(n int64)   { atomic.AddInt64(&c.extra, n) }
func (c *Counters) AddQueued(n int64)  { atomic.AddInt64(&c.queued, n) }
func (c *Counters) IncVisited()        { atomic.AddInt64(&c.visited, 1) }
func (c *Counters) IncFailed()         { atomic.AddInt64(&c.failed, 1) }
func (c *Counters) DecQueued()         { atomic.AddInt64(&c.queued, -1) }

// Snapshot is a point-in-time read of all five counters.
type Snapshot struct {
	Visited int64
	Failed  int64
	Initial int64
	Extra   int64
	Queued  int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Visited: atomic.LoadInt64(&c.visited),
		Failed:  atomic.LoadInt64(&c.failed),
		Initial: atomic.LoadInt64(&c.initial),
		Extra:   atomic.LoadInt64(&c.extra),
		Queued:  atomic.LoadInt64(&c.queued),
	}
}
