package crawler

import "sync"

// Entry is a URL waiting to be processed, with its link distance from
// the start URL.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is a FIFO queue of entries. It does not deduplicate: the same
// URL may be queued several times and is filtered by the VisitedSet when
// dequeued. It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	queue []Entry
}

// NewFrontier returns an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{}
}

// Enqueue appends an entry.
func (f *Frontier) Enqueue(url string, depth int) {
	f.mu.Lock()
	f.queue = append(f.queue, Entry{URL: url, Depth: depth})
	f.mu.Unlock()
}

// TryDequeue removes and returns the oldest entry. It reports false when
// the frontier is empty.
func (f *Frontier) TryDequeue() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return Entry{}, false
	}
	e := f.queue[0]
	f.queue[0] = Entry{}
	f.queue = f.queue[1:]
	if len(f.queue) == 0 {
		f.queue = nil
	}
	return e, true
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// VisitedSet records every URL the crawler has dequeued. A URL is added
// once and never removed. It is safe for concurrent use.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet returns an empty VisitedSet.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// MarkVisited adds url and reports whether it was not yet present.
func (v *VisitedSet) MarkVisited(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	return true
}

// Contains reports whether url was visited.
func (v *VisitedSet) Contains(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[url]
	return ok
}

// Len returns the number of visited URLs.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
