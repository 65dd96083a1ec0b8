package crawler

import (
	"net/url"
	"strings"
	"time"

	"github.com/pemistahl/lingua-go"

	"github.com/omarsamir27/wetcrawl/internal/lang"
	"github.com/omarsamir27/wetcrawl/urlutil"
)

const (
	linkCacheThreshold = 400
	quiescenceTimeout  = 60 * time.Second
)

// ProcessorConfig configures the Processor.
type ProcessorConfig struct {
	AcceptAll       bool
	AcceptLanguages []lingua.Language
}

// fetchQueue is the narrow view of fetch_ch the Processor needs: it both
// feeds dispersed outlinks back in and, at quiescence time, must observe
// whether any in-flight work remains.
type fetchQueue interface {
	Send(CrawlEntry)
	IsEmpty() bool
}

// recordSender is the narrow producer view of writer_ch (unbounded,
// spec.md §5): the Processor is its only producer.
type recordSender interface {
	Send(WetRecord)
}

// Processor is single-threaded with respect to its own state: the
// known-URL set and the link cache are touched only from Run's goroutine.
type Processor struct {
	cfg       ProcessorConfig
	known     *KnownURLSet
	filter    *lang.Filter
	linkCache []CrawlEntry
	counters  *Counters
	timeout   time.Duration // quiescenceTimeout in production; shortened in tests
}

// NewProcessor builds a Processor over a shared known-URL set and
// language filter.
func NewProcessor(cfg ProcessorConfig, known *KnownURLSet, filter *lang.Filter, counters *Counters) *Processor {
	return &Processor{cfg: cfg, known: known, filter: filter, counters: counters, timeout: quiescenceTimeout}
}

// Run implements the cyclic pipeline's quiescence protocol (§5): scrapeCh
// is never closed by any upstream stage (the seed loader closes nothing,
// and Fetchers keep running until fetch_ch closes), so the Processor is the
// one stage responsible for deciding the crawl is done. It waits on
// scrapeCh with a timeout; if the timeout elapses and fetch is observed
// empty, the crawl is quiescent and Run flushes and returns. A timeout with
// fetch non-empty just means fetchers are still working a backlog, so Run
// keeps waiting.
func (p *Processor) Run(scrapeCh <-chan ScrapEntry, fetch fetchQueue, records recordSender) {
	for {
		select {
		case entry := <-scrapeCh:
			p.process(entry, fetch, records)
		case <-time.After(p.timeout):
			if fetch.IsEmpty() {
				p.flush(fetch)
				return
			}
		}
	}
}

func (p *Processor) process(entry ScrapEntry, fetch fetchQueue, records recordSender) {
	doc, err := ParseDocument(strings.NewReader(entry.Response.Body))
	text := entry.Response.Body
	if err == nil {
		text = ExtractText(doc)
	}

	records.Send(NewWetRecord(entry.Response, text))

	if entry.Depth <= 0 || err != nil {
		return
	}
	if !p.cfg.AcceptAll && !p.filter.HasLanguage(text, p.cfg.AcceptLanguages) {
		return
	}

	for _, href := range ExtractOutlinks(doc, nil) {
		if !urlutil.IsHTTPScheme(href) {
			continue
		}
		parsed, err := url.Parse(href)
		if err != nil || parsed.Host == "" {
			continue
		}
		if !p.known.MarkIfNew(href) {
			continue
		}
		p.linkCache = append(p.linkCache, CrawlEntry{URL: href, Depth: entry.Depth})
	}

	if len(p.linkCache) >= linkCacheThreshold || fetch.IsEmpty() {
		p.flush(fetch)
	}
}

// flush disperses the accumulated link cache, counts it into extra/queued,
// and sends each resulting entry to fetch. Per spec.md §4.5 step 6 this
// runs whenever the cache hits linkCacheThreshold or fetch_ch is observed
// empty, and once more as Run's final act before returning.
func (p *Processor) flush(fetch fetchQueue) {
	if len(p.linkCache) == 0 {
		return
	}
	batch := disperse(p.linkCache)
	p.linkCache = nil
	p.counters.AddExtra(int64(len(batch)))
	p.counters.AddQueued(int64(len(batch)))
	for _, entry := range batch {
		fetch.Send(entry)
	}
}
