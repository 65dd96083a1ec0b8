package crawler

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WetRecord is a single WARC-framed record ready to be serialized.
type WetRecord struct {
	RecordID      string
	TargetURI     string
	Date          string
	IPAddress     string
	Body          string
	ContentLength int
}

// NewWetRecord builds a WetRecord from a Response and its DOM-extracted
// text, minting a fresh record ID.
func NewWetRecord(resp Response, text string) WetRecord {
	return WetRecord{
		RecordID:      uuid.NewString(),
		TargetURI:     resp.URL,
		Date:          resp.FetchedAt,
		IPAddress:     resp.RemoteIP,
		Body:          text,
		ContentLength: len(text),
	}
}

// Writer owns the gzip-compressed WARC output file. The writer MUST NOT
// drop records: a write error aborts the crawl.
type Writer struct {
	file   *os.File
	buf    *bufio.Writer
	gz     *gzip.Writer
	logger *zap.Logger
}

// NewWriter creates (or truncates) the output file at path and wraps it
// in a buffered gzip encoder.
func NewWriter(path string, logger *zap.Logger) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create WARC output %s: %w", path, err)
	}
	buf := bufio.NewWriter(file)
	gz := gzip.NewWriter(buf)
	return &Writer{file: file, buf: buf, gz: gz, logger: logger}, nil
}

// Run drains records, serializing each as a WARC/1.0 record through the
// gzip encoder. Returns (and stops draining) on the first write error,
// since a write error is fatal to the crawl.
func (w *Writer) Run(records <-chan WetRecord) error {
	for record := range records {
		if err := w.writeRecord(record); err != nil {
			w.logger.Error("writer fatal error", zap.String("targetURI", record.TargetURI), zap.Error(err))
			return fmt.Errorf("write WARC record for %s: %w", record.TargetURI, err)
		}
	}
	return nil
}

func (w *Writer) writeRecord(record WetRecord) error {
	if _, err := fmt.Fprintf(w.gz, "WARC/1.0\r\n"); err != nil {
		return err
	}
	headers := []struct{ name, value string }{
		{"WARC-Record-ID", record.RecordID},
		{"WARC-Target-URI", record.TargetURI},
		{"WARC-Type", "warcinfo"},
		{"WARC-Date", record.Date},
		{"WARC-IP-Address", record.IPAddress},
		{"Content-Length", fmt.Sprintf("%d", record.ContentLength)},
	}
	for _, h := range headers {
		if _, err := fmt.Fprintf(w.gz, "%s: %s\r\n", h.name, h.value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w.gz, "\r\n%s\r\n\r\n", record.Body); err != nil {
		return err
	}
	return nil
}

// Close finishes the gzip stream (writing its trailer), flushes the
// buffered writer, and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.gz.Close(); err != nil {
		return fmt.Errorf("finish gzip stream: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush WARC output: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close WARC output: %w", err)
	}
	return nil
}
