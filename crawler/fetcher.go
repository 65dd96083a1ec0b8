package crawler

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FetcherConfig configures the Fetcher Pool.
type FetcherConfig struct {
	Workers        int
	ConnectTimeout time.Duration
	RespectRobots  bool
}

// scrapeSender is the narrow producer view of processor_ch (unbounded,
// spec.md §5): Fetchers only ever send on it.
type scrapeSender interface {
	Send(ScrapEntry)
}

// stringSender is the narrow producer view of log_ch (unbounded,
// spec.md §5).
type stringSender interface {
	Send(string)
}

// Fetcher is a single HTTP client shared by every worker in the pool,
// plus the state robots evaluation needs.
type Fetcher struct {
	client   *http.Client
	robots   *RobotsCache
	cfg      FetcherConfig
	counters *Counters
	badURLs  stringSender
	logger   *zap.Logger
}

// NewFetcher builds a Fetcher sharing one HTTP client across all workers.
// The client follows redirects (bounded to 10, matching net/http's
// default) and honors cfg.ConnectTimeout as an overall per-request
// deadline.
func NewFetcher(cfg FetcherConfig, robots *RobotsCache, counters *Counters, badURLs stringSender, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.ConnectTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		robots:   robots,
		cfg:      cfg,
		counters: counters,
		badURLs:  badURLs,
		logger:   logger,
	}
}

// Run launches cfg.Workers goroutines draining fetchCh and sending
// ScrapEntries to scrapeCh, until fetchCh closes and drains. A
// crawl-delay loopback re-enqueues onto fetchCh via loop, which is why
// fetchCh must be unbounded (see queue.go).
func (f *Fetcher) Run(ctx context.Context, fetchCh <-chan CrawlEntry, loop func(CrawlEntry), scrape scrapeSender) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < f.cfg.Workers; i++ {
		g.Go(func() error {
			for entry := range fetchCh {
				f.counters.DecQueued()
				f.handle(ctx, entry, loop, scrape)
			}
			return nil
		})
	}
	return g.Wait()
}

// robotsOutcome distinguishes why a fresh robots.txt fetch left the
// cache without an entry, since the two cases are handled differently
// (§4.3 step 4).
type robotsOutcome int

const (
	robotsInserted robotsOutcome = iota
	robotsNetworkError
	robotsParseError
)

// handle runs robots evaluation (§4.3) and, if the verdict allows it,
// performs the fetch (§4.4).
func (f *Fetcher) handle(ctx context.Context, entry CrawlEntry, loop func(CrawlEntry), scrape scrapeSender) {
	origin, err := Origin(entry.URL)
	if err != nil {
		f.counters.IncFailed()
		f.badURLs.Send(entry.URL)
		return
	}

	if f.cfg.RespectRobots {
		if !f.robots.Has(origin) {
			switch f.fetchRobots(ctx, origin) {
			case robotsNetworkError:
				// Permissive fallback: fetch as if allowed, without
				// recording last-visited.
				f.fetch(ctx, entry, scrape)
				return
			case robotsParseError:
				// Forbidden for this attempt; no cache entry stored, so
				// a later encounter retries the fetch.
				f.logger.Warn("robots.txt parse failed", zap.String("origin", origin))
				return
			}
		}

		verdict, err := f.robots.CanVisit(entry.URL, origin)
		if err != nil {
			f.counters.IncFailed()
			f.badURLs.Send(entry.URL)
			return
		}
		switch verdict {
		case ForbiddenPath:
			return
		case CrawlDelay:
			f.counters.AddQueued(1)
			loop(entry)
			return
		case Proceed:
			f.robots.Update(origin)
		}
	}

	f.fetch(ctx, entry, scrape)
}

// fetchRobots attempts to populate the robots cache for origin.
func (f *Fetcher) fetchRobots(ctx context.Context, origin string) robotsOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return robotsNetworkError
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return robotsNetworkError
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return robotsNetworkError
	}
	if !f.robots.Insert(origin, body) {
		return robotsParseError
	}
	return robotsInserted
}

func (f *Fetcher) fetch(ctx context.Context, entry CrawlEntry, scrape scrapeSender) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.ConnectTimeout)
	defer cancel()

	var remoteIP string
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn != nil {
				if host, _, err := net.SplitHostPort(info.Conn.RemoteAddr().String()); err == nil {
					remoteIP = host
				}
			}
		},
	}
	reqCtx = httptrace.WithClientTrace(reqCtx, trace)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, entry.URL, nil)
	if err != nil {
		f.counters.IncFailed()
		f.badURLs.Send(entry.URL)
		f.logger.Info("fetch failed", zap.String("url", entry.URL), zap.Error(err))
		return
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.counters.IncFailed()
		f.badURLs.Send(entry.URL)
		f.logger.Info("fetch failed", zap.String("url", entry.URL), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.counters.IncFailed()
		f.badURLs.Send(entry.URL)
		f.logger.Info("fetch failed", zap.String("url", entry.URL), zap.Error(err))
		return
	}

	// net/http sets ContentLength to -1 when the header is absent or the
	// body is chunked; spec.md wants 0 in that case, the declared length
	// otherwise (matching the Rust original's content_length() handling).
	contentLength := uint64(0)
	if resp.ContentLength >= 0 {
		contentLength = uint64(resp.ContentLength)
	}

	response := Response{
		RemoteIP:      remoteIP,
		HTTPVersion:   resp.Proto,
		Status:        resp.Status,
		URL:           entry.URL,
		Body:          string(body),
		ContentLength: contentLength,
		Headers:       formatHeaders(resp.Header),
		FetchedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	f.counters.IncVisited()
	scrape.Send(ScrapEntry{Response: response, Depth: entry.Depth - 1})
}

func formatHeaders(h http.Header) string {
	var out string
	for key, values := range h {
		for _, v := range values {
			out += key + ": " + v + "\r\n"
		}
	}
	return out
}
