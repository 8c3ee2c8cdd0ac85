// Package acquire turns user input (a local file, a URL or a list of URLs)
// into exactly one image artifact and hands it to a downstream consumer.
package acquire

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"defectlens/pkg/downloader"
	"defectlens/pkg/linknorm"
	"sync"

	"github.com/rs/zerolog"
)

// Source identifies an input adapter.
type Source int

const (
	SourceNone Source = iota
	SourceFile
	SourceURL
	SourceBatch
)

func (s Source) String() string {
	switch s {
	case SourceFile:
		return "file"
	case SourceURL:
		return "url"
	case SourceBatch:
		return "batch"
	default:
		return "none"
	}
}

// AcquiredFunc receives each acquired image. It runs on the goroutine that
// completed the acquisition, before that acquisition's Future resolves.
type AcquiredFunc func(ctx context.Context, img *artifact.Image)

// Orchestrator owns the active-source slot. Starting an acquisition
// activates its source. At most one image is handed to onAcquired per user
// action; results from a source that is no longer active are dropped.
// Mutable
type Orchestrator struct {
	fetcher    downloader.Downloader
	onAcquired AcquiredFunc
	disp       display.Display
	maxBytes   int64

	mu       sync.Mutex
	active   Source
	gen      uint64
	fileBusy bool
	urlBusy  bool
	urlInput string
	batch    *Batch
	batchFut *Future
}

type Option func(*Orchestrator)

// WithDisplay reports fetch progress to d.
func WithDisplay(d display.Display) Option {
	return func(o *Orchestrator) { o.disp = d }
}

// WithMaxBytes caps local files. Fetch limits belong to the downloader.
func WithMaxBytes(n int64) Option {
	return func(o *Orchestrator) { o.maxBytes = n }
}

func New(fetcher downloader.Downloader, onAcquired AcquiredFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:    fetcher,
		onAcquired: onAcquired,
		disp:       display.Discard(),
		maxBytes:   downloader.DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Activate makes src the active source. The other sources lose their
// transient input and any result still in flight for them is discarded.
func (o *Orchestrator) Activate(src Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activateLocked(src)
}

func (o *Orchestrator) activateLocked(src Source) {
	if o.active == src {
		return
	}
	o.active = src
	o.gen++
	o.fileBusy = false
	o.urlBusy = false
	if src != SourceURL {
		o.urlInput = ""
	}
	if src != SourceBatch {
		o.dropBatchLocked()
	}
}

func (o *Orchestrator) dropBatchLocked() {
	if o.batchFut != nil {
		o.batchFut.resolve(nil, newUserError(ErrSuperseded))
	}
	o.batch = nil
	o.batchFut = nil
}

func (o *Orchestrator) Active() Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// URLInput is the text of the single-URL input. It survives a failed fetch
// and is cleared by a successful one.
func (o *Orchestrator) URLInput() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.urlInput
}

// Batch returns the current batch session, or nil.
func (o *Orchestrator) Batch() *Batch {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.batch
}

// AcquireFromFile validates f and hands it off.
func (o *Orchestrator) AcquireFromFile(ctx context.Context, f LocalFile) *Future {
	o.mu.Lock()
	o.activateLocked(SourceFile)
	if o.fileBusy {
		o.mu.Unlock()
		return failed(newUserError(ErrBusy))
	}
	o.fileBusy = true
	gen := o.gen
	o.mu.Unlock()

	fut := newFuture()
	go func() {
		img, err := FromFile(f, o.maxBytes)
		var ue *UserError
		if err != nil {
			ue = enrich(err, "")
		}
		o.complete(ctx, SourceFile, gen, fut, img, ue)
	}()
	return fut
}

// AcquireFromURL normalizes rawURL, fetches it and hands the image off.
func (o *Orchestrator) AcquireFromURL(ctx context.Context, rawURL string) *Future {
	o.mu.Lock()
	o.activateLocked(SourceURL)
	if o.urlBusy {
		o.mu.Unlock()
		return failed(newUserError(ErrBusy))
	}
	o.urlBusy = true
	o.urlInput = rawURL
	gen := o.gen
	o.mu.Unlock()

	fut := newFuture()
	go func() {
		link := linknorm.Normalize(rawURL, 1)
		zerolog.Ctx(ctx).Debug().
			Str("provider", string(link.Provider)).
			Str("fetch_url", link.FetchURL).
			Msg("Fetching single URL")
		task := o.disp.StartTask(link.SuggestedName)
		img, err := o.fetcher.Fetch(ctx, link, task)
		task.Done()
		o.complete(ctx, SourceURL, gen, fut, img, enrich(err, link.OriginalURL))
	}()
	return fut
}

// AcquireFromURLBatch starts a batch session from newline separated URLs.
// The returned Future resolves with the first item handed off; items are
// fetched with FetchBatchItem. Malformed input fails immediately and leaves
// no session behind.
func (o *Orchestrator) AcquireFromURLBatch(text string) *Future {
	b, err := NewBatch(text)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.activateLocked(SourceBatch)
	o.dropBatchLocked()
	if err != nil {
		return failed(err)
	}
	o.gen++
	o.batch = b
	o.batchFut = newFuture()
	return o.batchFut
}

// FetchBatchItem fetches item i of the current batch. The returned Future
// carries this attempt's result; a failure leaves the item retryable.
func (o *Orchestrator) FetchBatchItem(ctx context.Context, i int) *Future {
	o.mu.Lock()
	b := o.batch
	if o.active != SourceBatch || b == nil {
		o.mu.Unlock()
		return failed(newUserError(ErrNoBatch))
	}
	gen := o.gen
	o.mu.Unlock()

	link, err := b.begin(i)
	if err != nil {
		return failed(err)
	}

	fut := newFuture()
	go func() {
		task := o.disp.StartTask(link.SuggestedName)
		img, err := o.fetcher.Fetch(ctx, link, task)
		task.Done()
		ue := enrich(err, link.OriginalURL)
		b.finish(i, ue)
		if ue != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Int("item", i).Msg("Batch item failed")
		}
		o.complete(ctx, SourceBatch, gen, fut, img, ue)
	}()
	return fut
}

// CloseBatch ends the batch session without a hand-off.
func (o *Orchestrator) CloseBatch() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.batch == nil {
		return
	}
	o.gen++
	o.dropBatchLocked()
}

func (o *Orchestrator) complete(ctx context.Context, src Source, gen uint64, fut *Future, img *artifact.Image, ue *UserError) {
	o.mu.Lock()
	if o.active != src || o.gen != gen {
		o.mu.Unlock()
		zerolog.Ctx(ctx).Debug().Stringer("source", src).Msg("Discarding result of inactive source")
		fut.resolve(nil, newUserError(ErrSuperseded))
		return
	}

	if ue != nil {
		switch src {
		case SourceFile:
			o.fileBusy = false
		case SourceURL:
			o.urlBusy = false
		}
		o.mu.Unlock()
		fut.resolve(nil, ue)
		return
	}

	batchFut := o.batchFut
	o.gen++
	o.fileBusy = false
	o.urlBusy = false
	o.urlInput = ""
	o.batch = nil
	o.batchFut = nil
	o.mu.Unlock()

	if o.onAcquired != nil {
		o.onAcquired(ctx, img)
	}
	fut.resolve(img, nil)
	if batchFut != nil {
		batchFut.resolve(img, nil)
	}
}
