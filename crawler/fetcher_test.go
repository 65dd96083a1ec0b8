package crawler

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeScrapeSender struct {
	mu   sync.Mutex
	sent []ScrapEntry
}

func (s *fakeScrapeSender) Send(e ScrapEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, e)
}

func (s *fakeScrapeSender) drained() []ScrapEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScrapEntry(nil), s.sent...)
}

type fakeStringSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeStringSender) Send(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, v)
}

func (s *fakeStringSender) drained() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func newTestFetcher(cfg FetcherConfig) (*Fetcher, *Counters, *fakeStringSender) {
	counters := &Counters{}
	badURLs := &fakeStringSender{}
	return NewFetcher(cfg, NewRobotsCache(), counters, badURLs, zap.NewNop()), counters, badURLs
}

func TestFetcher_SuccessfulFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	f, counters, badURLs := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 2 * time.Second, RespectRobots: false})
	scrape := &fakeScrapeSender{}

	f.handle(context.Background(), CrawlEntry{URL: srv.URL + "/a", Depth: 2}, func(CrawlEntry) {}, scrape)

	sent := scrape.drained()
	if len(sent) != 1 {
		t.Fatalf("expected one ScrapEntry, got %d", len(sent))
	}
	if sent[0].Depth != 1 {
		t.Errorf("Depth = %d, want 1 (decremented once)", sent[0].Depth)
	}
	if sent[0].Response.Body != "<html><body>hi</body></html>" {
		t.Errorf("unexpected body: %q", sent[0].Response.Body)
	}
	if counters.Snapshot().Visited != 1 {
		t.Errorf("visited = %d, want 1", counters.Snapshot().Visited)
	}
	if len(badURLs.drained()) != 0 {
		t.Errorf("expected no bad URLs, got %v", badURLs.drained())
	}
}

func TestFetcher_ContentLengthReflectsDeclaredHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f, _, _ := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 2 * time.Second, RespectRobots: false})
	scrape := &fakeScrapeSender{}

	f.handle(context.Background(), CrawlEntry{URL: srv.URL + "/a", Depth: 1}, func(CrawlEntry) {}, scrape)

	sent := scrape.drained()
	if len(sent) != 1 {
		t.Fatalf("expected one ScrapEntry, got %d", len(sent))
	}
	if sent[0].Response.ContentLength != 5 {
		t.Errorf("ContentLength = %d, want 5 (from the declared header)", sent[0].Response.ContentLength)
	}
}

func TestFetcher_ContentLengthZeroWhenHeaderAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Transfer-Encoding", "chunked")
		w.(http.Flusher).Flush()
		w.Write([]byte("chunked body, no declared length"))
	}))
	defer srv.Close()

	f, _, _ := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 2 * time.Second, RespectRobots: false})
	scrape := &fakeScrapeSender{}

	f.handle(context.Background(), CrawlEntry{URL: srv.URL + "/a", Depth: 1}, func(CrawlEntry) {}, scrape)

	sent := scrape.drained()
	if len(sent) != 1 {
		t.Fatalf("expected one ScrapEntry, got %d", len(sent))
	}
	if sent[0].Response.ContentLength != 0 {
		t.Errorf("ContentLength = %d, want 0 when the response declares no length", sent[0].Response.ContentLength)
	}
}

func TestFetcher_TransportErrorCountsFailed(t *testing.T) {
	// A closed listener's address refuses connections immediately.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	f, counters, badURLs := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 500 * time.Millisecond, RespectRobots: false})
	scrape := &fakeScrapeSender{}

	url := "http://" + addr + "/a"
	f.handle(context.Background(), CrawlEntry{URL: url, Depth: 1}, func(CrawlEntry) {}, scrape)

	if len(scrape.drained()) != 0 {
		t.Errorf("expected no ScrapEntry on transport error, got %v", scrape.drained())
	}
	if counters.Snapshot().Failed != 1 {
		t.Errorf("failed = %d, want 1", counters.Snapshot().Failed)
	}
	if got := badURLs.drained(); len(got) != 1 || got[0] != url {
		t.Errorf("bad URLs = %v, want [%s]", got, url)
	}
}

func TestFetcher_RobotsForbiddenDropsWithoutCountingFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/private/x", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("should not be fetched"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, counters, badURLs := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 2 * time.Second, RespectRobots: true})
	scrape := &fakeScrapeSender{}

	f.handle(context.Background(), CrawlEntry{URL: srv.URL + "/private/x", Depth: 1}, func(CrawlEntry) {}, scrape)

	if len(scrape.drained()) != 0 {
		t.Errorf("expected robots-forbidden URL to be dropped, got %v", scrape.drained())
	}
	if counters.Snapshot().Failed != 0 {
		t.Errorf("expected failed to stay 0 for a robots-forbidden URL, got %d", counters.Snapshot().Failed)
	}
	if len(badURLs.drained()) != 0 {
		t.Errorf("expected no bad-URL log entry for robots-forbidden URL, got %v", badURLs.drained())
	}
}

func TestFetcher_RobotsCrawlDelayLoopsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nCrawl-delay: 10\n"))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, counters, _ := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 2 * time.Second, RespectRobots: true})
	scrape := &fakeScrapeSender{}
	entry := CrawlEntry{URL: srv.URL + "/a", Depth: 1}

	f.handle(context.Background(), entry, func(CrawlEntry) {}, scrape)
	if len(scrape.drained()) != 1 {
		t.Fatalf("expected first visit to succeed, got %v", scrape.drained())
	}

	var looped bool
	var loopedEntry CrawlEntry
	f.handle(context.Background(), entry, func(e CrawlEntry) {
		looped = true
		loopedEntry = e
	}, scrape)

	if !looped {
		t.Fatal("expected the second visit to hit the crawl-delay loopback")
	}
	if loopedEntry != entry {
		t.Errorf("loopback entry = %+v, want %+v", loopedEntry, entry)
	}
	if len(scrape.drained()) != 1 {
		t.Errorf("expected no additional fetch while on crawl-delay, got %v", scrape.drained())
	}
	if counters.Snapshot().Queued != 1 {
		t.Errorf("queued = %d, want 1 (re-incremented on loopback)", counters.Snapshot().Queued)
	}
}

func TestFetcher_RobotsTxtMissingIsPermissive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, counters, _ := newTestFetcher(FetcherConfig{Workers: 1, ConnectTimeout: 2 * time.Second, RespectRobots: true})
	scrape := &fakeScrapeSender{}

	f.handle(context.Background(), CrawlEntry{URL: srv.URL + "/a", Depth: 1}, func(CrawlEntry) {}, scrape)

	if len(scrape.drained()) != 1 {
		t.Errorf("expected a 404 robots.txt to be permissive, got %v", scrape.drained())
	}
	if counters.Snapshot().Visited != 1 {
		t.Errorf("visited = %d, want 1", counters.Snapshot().Visited)
	}
}
