package render

import (
	"math"

	"iptv-catalog/work/catalog"
)

// DefaultPageSize is how many cards one pagination step appends.
const DefaultPageSize = 20

// Trigger is the "near end of list" event source: a sentinel that fires when
// it scrolls into view. Observe arms it with a callback, Disconnect disarms
// it. Implementations may use a platform visibility API or poll scroll
// position; the renderer does not care.
type Trigger interface {
	Observe(fire func())
	Disconnect()
}

// Sink receives rendered batches and progress annotations.
type Sink interface {
	Append(items []catalog.ChannelRecord)
	Progress(loaded, total, percent int)
	Clear()
}

// Renderer paginates an ordered, already-filtered item set into the sink,
// one page per trigger firing. Switching item sets must go through Reset so
// a stale trigger can never paginate into a discarded list.
type Renderer struct {
	sink     Sink
	trigger  Trigger
	pageSize int
	items    []catalog.ChannelRecord
	page     int
}

// New builds a renderer with the default page size.
func New(sink Sink, trigger Trigger) *Renderer {
	return &Renderer{sink: sink, trigger: trigger, pageSize: DefaultPageSize}
}

// Reset installs a new item set: the trigger is disconnected first, the sink
// cleared, and the cursor returned to the first page. The caller follows up
// with LoadNextPage to render the initial batch.
func (r *Renderer) Reset(items []catalog.ChannelRecord) {
	r.trigger.Disconnect()
	r.sink.Clear()
	r.items = items
	r.page = 0
}

// LoadNextPage renders the next page slice. An empty slice is the normal
// terminal condition: the trigger is disconnected and nil returned. While
// items remain beyond the rendered ones, the trigger is re-armed with a
// progress annotation so the next viewport hit loads another page.
func (r *Renderer) LoadNextPage() []catalog.ChannelRecord {
	start := r.page * r.pageSize
	if start >= len(r.items) {
		r.trigger.Disconnect()
		return nil
	}
	end := start + r.pageSize
	if end > len(r.items) {
		end = len(r.items)
	}

	batch := r.items[start:end]
	r.sink.Append(batch)
	r.page++

	if end < len(r.items) {
		total := len(r.items)
		percent := int(math.Round(float64(end) / float64(total) * 100))
		r.sink.Progress(end, total, percent)
		r.trigger.Observe(func() { r.LoadNextPage() })
	}
	return batch
}

// Loaded reports how many items have been rendered so far.
func (r *Renderer) Loaded() int {
	loaded := r.page * r.pageSize
	if loaded > len(r.items) {
		loaded = len(r.items)
	}
	return loaded
}

// Total reports the size of the active item set.
func (r *Renderer) Total() int {
	return len(r.items)
}
