package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omarsamir27/wetcrawl/internal/lang"
)

// PipelineConfig is the fully-resolved, ready-to-run configuration for one
// crawl: a job config plus its loaded seed list and resolved language set.
type PipelineConfig struct {
	Seeds           []string
	DestinationWARC string
	BadURLLog       string
	LinkTimeout     time.Duration
	Workers         int
	CrawlRecursion  int
	AcceptLanguages []lingua.Language
	RespectRobots   bool
	ReportInterval  time.Duration
	Logger          *zap.Logger
}

// Pipeline wires every stage of §5's cyclic crawl pipeline together and
// owns its startup and shutdown sequence.
type Pipeline struct {
	cfg       PipelineConfig
	fetchQ    *unboundedQueue[CrawlEntry]
	scrapeQ   *unboundedQueue[ScrapEntry]
	writerQ   *unboundedQueue[WetRecord]
	logQ      *unboundedQueue[string]
	counters  *Counters
	known     *KnownURLSet
	fetcher   *Fetcher
	processor *Processor
	writer    *Writer
	badURLs   *BadURLLogger
	reporter  *Reporter
}

// NewPipeline constructs every stage. The returned Pipeline owns the
// output file and bad-URL log and must have Run called exactly once.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	known, err := NewKnownURLSet()
	if err != nil {
		return nil, fmt.Errorf("build known-URL tracker: %w", err)
	}

	writer, err := NewWriter(cfg.DestinationWARC, cfg.Logger)
	if err != nil {
		known.Close()
		return nil, err
	}

	badURLs, err := NewBadURLLogger(cfg.BadURLLog)
	if err != nil {
		known.Close()
		writer.Close()
		return nil, err
	}

	counters := &Counters{}
	logQ := newUnboundedQueue[string]()

	fetcher := NewFetcher(FetcherConfig{
		Workers:        cfg.Workers,
		ConnectTimeout: cfg.LinkTimeout,
		RespectRobots:  cfg.RespectRobots,
	}, NewRobotsCache(), counters, logQ, cfg.Logger)

	processor := NewProcessor(ProcessorConfig{
		AcceptAll:       len(cfg.AcceptLanguages) == 0,
		AcceptLanguages: cfg.AcceptLanguages,
	}, known, lang.NewFilter(), counters)

	return &Pipeline{
		cfg:       cfg,
		fetchQ:    newUnboundedQueue[CrawlEntry](),
		scrapeQ:   newUnboundedQueue[ScrapEntry](),
		writerQ:   newUnboundedQueue[WetRecord](),
		logQ:      logQ,
		counters:  counters,
		known:     known,
		fetcher:   fetcher,
		processor: processor,
		writer:    writer,
		badURLs:   badURLs,
		reporter:  NewReporter(counters, cfg.ReportInterval),
	}, nil
}

// seedLoad inserts every seed into the known-URL set (a seed counts as its
// own first enqueue), builds a CrawlEntry per seed at full CrawlRecursion
// depth, disperses the batch, and counts it into initial/queued. Per §5
// bullet 1 the seed loader closes no channel; it just enqueues.
func (p *Pipeline) seedLoad() {
	entries := make([]CrawlEntry, 0, len(p.cfg.Seeds))
	for _, seedURL := range p.cfg.Seeds {
		if !p.known.MarkIfNew(seedURL) {
			continue
		}
		entries = append(entries, CrawlEntry{URL: seedURL, Depth: p.cfg.CrawlRecursion})
	}

	batch := disperse(entries)
	p.counters.AddInitial(int64(len(batch)))
	p.counters.AddQueued(int64(len(batch)))
	for _, entry := range batch {
		p.fetchQ.Send(entry)
	}
}

// Run executes one full crawl: seed, run every stage concurrently, and
// drain them down in the order §5 requires once the Processor reports
// quiescence.
func (p *Pipeline) Run(ctx context.Context) error {
	p.seedLoad()

	var writerErr, badURLErr error
	writerDone := make(chan struct{})
	go func() {
		writerErr = p.writer.Run(p.writerQ.Recv())
		close(writerDone)
	}()

	badURLDone := make(chan struct{})
	go func() {
		badURLErr = p.badURLs.Run(p.logQ.Recv())
		close(badURLDone)
	}()

	reporterStop := make(chan struct{})
	reporterDone := make(chan struct{})
	go func() {
		p.reporter.Run(reporterStop)
		close(reporterDone)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.fetcher.Run(gctx, p.fetchQ.Recv(), p.fetchQ.Send, p.scrapeQ)
	})

	// The Processor is the one stage that decides the crawl is done (§5
	// bullet 2): it self-detects quiescence and returns, it is never told
	// to stop from outside.
	p.processor.Run(p.scrapeQ.Recv(), p.fetchQ, p.writerQ)

	// Closing fetchQ now is safe even if a Fetcher worker's crawl-delay
	// loopback Send is still in flight; see queue.go's Close/Send doc
	// comments and the matching DESIGN.md entry.
	p.fetchQ.Close()
	if err := g.Wait(); err != nil {
		p.cfg.Logger.Error("fetcher pool exited with error", zap.Error(err))
	}

	// Every producer of writerQ (the Processor) and logQ (the Fetchers)
	// has now returned, so it's safe to close their inputs and let the
	// Writer and BadURLLogger drain to completion.
	p.writerQ.Close()
	p.logQ.Close()
	<-writerDone
	<-badURLDone

	if writerErr == nil {
		writerErr = p.writer.Close()
	} else {
		p.writer.Close()
	}
	if badURLErr == nil {
		badURLErr = p.badURLs.Close()
	} else {
		p.badURLs.Close()
	}

	close(reporterStop)
	<-reporterDone

	if err := p.known.Close(); err != nil {
		p.cfg.Logger.Warn("closing known-URL tracker", zap.Error(err))
	}

	if writerErr != nil {
		return fmt.Errorf("writer: %w", writerErr)
	}
	if badURLErr != nil {
		return fmt.Errorf("bad-url logger: %w", badURLErr)
	}
	return nil
}
