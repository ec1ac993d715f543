package feed

import "github.com/nhle/docflow/internal/model"

// Buffer is a bounded list of activities ordered by arrival, newest first.
// An id appears at most once. It is not safe for concurrent use.
type Buffer struct {
	items []model.Activity
	max   int
}

// NewBuffer returns an empty buffer holding at most max activities.
// A non-positive max is treated as 1.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 1
	}
	return &Buffer{max: max}
}

// Cap returns the maximum number of activities kept.
func (b *Buffer) Cap() int {
	return b.max
}

// Len returns the number of buffered activities.
func (b *Buffer) Len() int {
	return len(b.items)
}

// Items returns a copy of the buffered activities, newest first.
func (b *Buffer) Items() []model.Activity {
	out := make([]model.Activity, len(b.items))
	copy(out, b.items)
	return out
}

// Push puts a at the front regardless of its timestamp. An activity with
// the same id is replaced. The oldest entries beyond the cap are evicted.
func (b *Buffer) Push(a model.Activity) {
	next := make([]model.Activity, 0, min(len(b.items)+1, b.max))
	next = append(next, a)
	for _, it := range b.items {
		if len(next) == b.max {
			break
		}
		if it.ID == a.ID {
			continue
		}
		next = append(next, it)
	}
	b.items = next
}

// Replace discards the current contents in favor of items, which are
// assumed newest first. Later duplicates of an id are dropped.
func (b *Buffer) Replace(items []model.Activity) {
	b.items = b.items[:0:0]
	b.appendNew(items, make(map[string]bool, len(items)))
}

// Merge keeps the current contents in front and appends the items whose
// ids are not yet buffered, up to the cap.
func (b *Buffer) Merge(items []model.Activity) {
	seen := make(map[string]bool, len(b.items)+len(items))
	for _, it := range b.items {
		seen[it.ID] = true
	}
	b.appendNew(items, seen)
}

func (b *Buffer) appendNew(items []model.Activity, seen map[string]bool) {
	for _, it := range items {
		if len(b.items) >= b.max {
			return
		}
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		b.items = append(b.items, it)
	}
}
