package crawler

import (
	"bufio"
	"fmt"
	"os"
)

// BadURLLogger appends failed URLs to a log file, one per line, flushing
// every 5th message and once more when the channel it reads from closes.
type BadURLLogger struct {
	file   *os.File
	writer *bufio.Writer
}

// NewBadURLLogger opens (creating or appending to) the log file at path.
func NewBadURLLogger(path string) (*BadURLLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open bad-url log %s: %w", path, err)
	}
	return &BadURLLogger{file: file, writer: bufio.NewWriter(file)}, nil
}

// Run drains urls, appending each with a trailing newline, flushing every
// 5th write and once more after urls closes. Returns when urls closes.
func (l *BadURLLogger) Run(urls <-chan string) error {
	count := 0
	for url := range urls {
		if _, err := fmt.Fprintf(l.writer, "%s\n", url); err != nil {
			return fmt.Errorf("write bad url: %w", err)
		}
		count++
		if count%5 == 0 {
			if err := l.writer.Flush(); err != nil {
				return fmt.Errorf("flush bad-url log: %w", err)
			}
		}
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("final flush bad-url log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *BadURLLogger) Close() error {
	return l.file.Close()
}
