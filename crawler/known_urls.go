package crawler

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// KnownURLSet is the Known URLs set from spec.md §3: every URL ever
// enqueued, seeds and accepted outlinks alike, recorded so the Processor
// never re-enqueues the same URL twice. It is a disk-backed bloom filter
// memory-mapped onto a temp file, so its resident memory stays flat no
// matter how many URLs a crawl accumulates — the set only ever grows, and
// only the Processor (the set's single writer, per §3) mutates it.
type KnownURLSet struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64 // URLs added since last sync
	syncEvery uint64 // sync to disk every N URLs
	lastErr   error  // last error from sync operations
}

// NewKnownURLSet sizes a bloom filter for 100,000 URLs at a 0.1% false
// positive rate and backs it with a memory-mapped temp file.
func NewKnownURLSet() (*KnownURLSet, error) {
	filter := bloom.NewWithEstimates(100000, 0.001)

	tmpDir := os.TempDir()
	tmpFile, err := os.CreateTemp(tmpDir, "wetcrawl-known-urls-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	filterSize := filter.Cap()
	if err := tmpFile.Truncate(int64(filterSize)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(filterSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &KnownURLSet{
		filter:    filter,
		file:      tmpFile,
		mmap:      mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

// Mark records url as known, whether or not it already was.
func (k *KnownURLSet) Mark(url string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.filter.AddString(url)
	k.count++
	k.maybeSyncLocked()
}

// Contains reports whether url has been marked. Bloom filters can give
// false positives but never false negatives.
func (k *KnownURLSet) Contains(url string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.filter.TestString(url)
}

// MarkIfNew atomically tests and marks url, returning true only the first
// time a given URL is seen. This is the primitive the Processor and seed
// loader actually want: "enqueue this URL only if it's genuinely new."
func (k *KnownURLSet) MarkIfNew(url string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.filter.TestString(url) {
		return false
	}
	k.filter.AddString(url)
	k.count++
	k.maybeSyncLocked()
	return true
}

// maybeSyncLocked persists to disk once syncEvery URLs have accumulated
// since the last sync. Must be called with mu held. Periodic sync is
// best-effort: a failure is recorded on lastErr rather than propagated,
// since a crawl should not abort over a stale backing file.
func (k *KnownURLSet) maybeSyncLocked() {
	if k.count < k.syncEvery {
		return
	}
	if err := k.syncLocked(); err != nil {
		k.lastErr = err
	}
}

// syncLocked persists the bloom filter to disk. Must be called with mu held.
func (k *KnownURLSet) syncLocked() error {
	data, err := k.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}

	if len(data) <= len(k.mmap) {
		copy(k.mmap, data)
	}

	if flushErr := k.mmap.Flush(); flushErr != nil {
		return fmt.Errorf("flush mmap: %w", flushErr)
	}
	k.count = 0
	return nil
}

// Close syncs any pending data and releases the mmap, file, and temp path.
func (k *KnownURLSet) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var errs []error

	if k.lastErr != nil {
		errs = append(errs, k.lastErr)
	}

	if k.mmap != nil {
		if k.count > 0 {
			if syncErr := k.syncLocked(); syncErr != nil {
				errs = append(errs, syncErr)
			}
		}
		if err := k.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		k.mmap = nil
	}

	if k.file != nil {
		if err := k.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		k.file = nil
	}

	if k.tmpPath != "" {
		if err := os.Remove(k.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		k.tmpPath = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("close known-URL set: %w", errors.Join(errs...))
	}
	return nil
}

// LastError returns the last error encountered during a periodic sync, so
// callers can surface disk I/O trouble without interrupting the crawl.
func (k *KnownURLSet) LastError() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastErr
}
