package crawler

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

func TestBadURLLogger_WritesOneURLPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.LOG")
	logger, err := NewBadURLLogger(path)
	if err != nil {
		t.Fatalf("NewBadURLLogger() error = %v", err)
	}

	urls := make(chan string)
	done := make(chan error, 1)
	go func() { done <- logger.Run(urls) }()

	urls <- "http://example.com/a"
	urls <- "http://example.com/b"
	close(urls)

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	want := []string{"http://example.com/a", "http://example.com/b"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestBadURLLogger_FlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.LOG")
	logger, err := NewBadURLLogger(path)
	if err != nil {
		t.Fatalf("NewBadURLLogger() error = %v", err)
	}

	urls := make(chan string)
	done := make(chan error, 1)
	go func() { done <- logger.Run(urls) }()

	// Fewer than 5 entries: relies on the close-triggered flush.
	urls <- "http://example.com/only"
	close(urls)

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if string(data) != "http://example.com/only\n" {
		t.Errorf("log contents = %q, want single flushed line", string(data))
	}
}
