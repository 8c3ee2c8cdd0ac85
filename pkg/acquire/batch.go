package acquire

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"defectlens/pkg/downloader"
	"defectlens/pkg/linknorm"
	"sync"
)

// Status of one batch item.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// BatchItem is a snapshot of one line of a batch.
type BatchItem struct {
	Link   linknorm.Link
	Status Status
	Err    *UserError
}

// Batch is one batch session: an ordered list of normalized links, each
// fetched only on explicit request.
// Mutable
type Batch struct {
	mu    sync.Mutex
	items []BatchItem
}

// NewBatch splits text into lines, drops blank ones and normalizes the rest.
// Input with no usable line is rejected before any item exists.
func NewBatch(text string) (*Batch, error) {
	lines := linknorm.SplitLines(text)
	if len(lines) == 0 {
		return nil, newUserError(ErrMalformedBatchInput)
	}
	b := &Batch{items: make([]BatchItem, len(lines))}
	for i, link := range linknorm.NormalizeAll(lines) {
		b.items[i] = BatchItem{Link: link, Status: StatusIdle}
	}
	return b, nil
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a copy of all items in input order.
func (b *Batch) Items() []BatchItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BatchItem, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Batch) Item(i int) (BatchItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.items) {
		return BatchItem{}, false
	}
	return b.items[i], true
}

// FetchItem fetches item i synchronously. Only that item's status changes;
// a failed item can be fetched again.
func (b *Batch) FetchItem(ctx context.Context, d downloader.Downloader, i int, task display.Task) (*artifact.Image, error) {
	link, err := b.begin(i)
	if err != nil {
		return nil, err
	}
	img, ferr := d.Fetch(ctx, link, task)
	ue := enrich(ferr, link.OriginalURL)
	b.finish(i, ue)
	if ue != nil {
		return nil, ue
	}
	return img, nil
}

func (b *Batch) begin(i int) (linknorm.Link, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.items) {
		return linknorm.Link{}, newUserError(ErrNoSuchItem)
	}
	it := &b.items[i]
	if it.Status == StatusLoading {
		return linknorm.Link{}, newUserError(ErrBusy)
	}
	it.Status = StatusLoading
	it.Err = nil
	return it.Link, nil
}

func (b *Batch) finish(i int, err *UserError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it := &b.items[i]
	if err != nil {
		it.Status = StatusFailed
		it.Err = err
		return
	}
	it.Status = StatusReady
}
