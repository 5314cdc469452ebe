package intake

import (
	"log/slog"

	"photomaker/internal/preview"
)

// MaxItems is the most images one submission can carry.
const MaxItems = 10

// File is an image payload ready for submission. Name/Size describe the bytes in Data, which
// may have been re-encoded; OriginalName/OriginalSize describe what the user picked.
type File struct {
	Name         string
	OriginalName string
	MediaType    string
	Size         int64
	OriginalSize int64
	Data         []byte
	Compressed   bool
}

// Item is one image pending submission.
type Item struct {
	ID      int
	File    File
	Design  string
	Preview *preview.Handle
}

type dedupKey struct {
	name string
	size int64
}

func (it Item) key() dedupKey { return it.File.key() }

func (f File) key() dedupKey {
	return dedupKey{name: f.OriginalName, size: f.OriginalSize}
}

// List is the ordered set of items; insertion order is display order.
//
// Mutations (Commit, Remove, Clear, SetDesign) complete fully before returning, so any reader
// taking a Snapshot afterwards never observes a partial list.
type List struct {
	items    []*Item
	nextID   int
	previews *preview.Registry
}

func NewList(previews *preview.Registry) *List {
	if previews == nil {
		previews = preview.NewRegistry()
	}
	return &List{previews: previews}
}

func (l *List) Len() int { return len(l.items) }

func (l *List) Previews() *preview.Registry { return l.previews }

// Snapshot returns a copy of the current items in order.
func (l *List) Snapshot() []Item {
	out := make([]Item, len(l.items))
	for i, it := range l.items {
		out[i] = *it
	}
	return out
}

func (l *List) Get(id int) (Item, bool) {
	for _, it := range l.items {
		if it.ID == id {
			return *it, true
		}
	}
	return Item{}, false
}

// SetDesign updates an item's design annotation in place.
func (l *List) SetDesign(id int, design string) bool {
	for _, it := range l.items {
		if it.ID == id {
			it.Design = design
			return true
		}
	}
	return false
}

// Remove deletes one item and releases its preview.
func (l *List) Remove(id int) bool {
	for i, it := range l.items {
		if it.ID != id {
			continue
		}
		l.release(it)
		l.items = append(l.items[:i:i], l.items[i+1:]...)
		return true
	}
	return false
}

// Clear empties the list, releasing every preview.
func (l *List) Clear() int {
	n := len(l.items)
	for _, it := range l.items {
		l.release(it)
	}
	l.items = nil
	return n
}

func (l *List) release(it *Item) {
	if err := l.previews.Release(it.Preview); err != nil {
		slog.Warn("Preview release failed", "item", it.ID, "err", err)
	}
	it.Preview = nil
}

func (l *List) has(k dedupKey) bool {
	for _, it := range l.items {
		if it.key() == k {
			return true
		}
	}
	return false
}

// Keys is a point-in-time copy of a list's dedup identities, safe to hand to Prepare off the
// UI loop.
type Keys struct {
	set map[dedupKey]bool
}

func (l *List) Keys() Keys {
	k := Keys{set: make(map[dedupKey]bool, len(l.items))}
	for _, it := range l.items {
		k.set[it.key()] = true
	}
	return k
}

// Len is the number of items the list held when the keys were taken.
func (k Keys) Len() int { return len(k.set) }

func (k Keys) has(key dedupKey) bool { return k.set[key] }

// Commit appends a prepared batch: it drops files the list gained since Prepare, re-checks the
// item cap for what is left and assigns ids and previews. Thumbnails were built by Prepare, so
// nothing here decodes an image.
func (l *List) Commit(b Batch) (Report, error) {
	rep := b.report
	keep := make([]int, 0, len(b.files))
	for i, f := range b.files {
		if l.has(f.key()) {
			rep.Duplicates++
			continue
		}
		keep = append(keep, i)
	}
	if l.Len()+len(keep) > MaxItems {
		rep.CapRejected = len(keep)
		return rep, capError(l.Len(), len(keep))
	}

	for _, i := range keep {
		l.nextID++
		it := &Item{
			ID:      l.nextID,
			File:    b.files[i],
			Preview: l.previews.Adopt(b.thumb(i)),
		}
		l.items = append(l.items, it)
		rep.Accepted++
		rep.AddedIDs = append(rep.AddedIDs, it.ID)
	}
	return rep, nil
}
