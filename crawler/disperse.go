package crawler

import "net/url"

// disperse reorders entries so that consecutive entries belong to
// different hosts where possible: entries are bucketed by host, then
// emitted by cycling through the buckets and popping one entry from each
// non-empty bucket in turn. This keeps a run of same-host URLs from
// monopolizing the fetcher pool, which would otherwise either stall on
// crawl-delay or starve every other host. An entry whose host cannot be
// parsed is dropped.
func disperse(entries []CrawlEntry) []CrawlEntry {
	buckets := make(map[string][]CrawlEntry)
	order := make([]string, 0)

	for _, entry := range entries {
		parsed, err := url.Parse(entry.URL)
		if err != nil || parsed.Host == "" {
			continue
		}
		if _, seen := buckets[parsed.Host]; !seen {
			order = append(order, parsed.Host)
		}
		buckets[parsed.Host] = append(buckets[parsed.Host], entry)
	}

	out := make([]CrawlEntry, 0, len(entries))
	for len(order) > 0 {
		next := order[:0]
		for _, host := range order {
			bucket := buckets[host]
			out = append(out, bucket[0])
			bucket = bucket[1:]
			if len(bucket) == 0 {
				delete(buckets, host)
				continue
			}
			buckets[host] = bucket
			next = append(next, host)
		}
		order = next
	}
	return out
}
