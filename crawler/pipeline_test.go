package crawler

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPipeline_CrawlsSeedAndOutlinkThenExitsQuiescent(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><body><a href="http://` + r.Host + `/child">child</a>hello</body></html>`))
	})
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><body>leaf page</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	cfg := PipelineConfig{
		Seeds:           []string{srv.URL + "/"},
		DestinationWARC: filepath.Join(dir, "out.warc.gz"),
		BadURLLog:       filepath.Join(dir, "bad.log"),
		LinkTimeout:     2 * time.Second,
		Workers:         2,
		CrawlRecursion:  2,
		RespectRobots:   false,
		ReportInterval:  time.Hour,
		Logger:          zap.NewNop(),
	}

	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	p.processor.timeout = 100 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return in time")
	}

	require.Equal(t, 2, hits, "expected the seed and its one outlink to be fetched")

	snap := p.counters.Snapshot()
	require.EqualValues(t, 2, snap.Visited)

	f, err := os.Open(cfg.DestinationWARC)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(body), "WARC/1.0"), "expected one WARC record per fetched page")
}
