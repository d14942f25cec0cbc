package harvest

// Deduplicator remembers every URL emitted during one run
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator returns an empty set
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Add records url and reports whether it was new
func (d *Deduplicator) Add(url string) bool {
	if _, ok := d.seen[url]; ok {
		return false
	}
	d.seen[url] = struct{}{}
	return true
}

// Len returns the number of distinct URLs
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
