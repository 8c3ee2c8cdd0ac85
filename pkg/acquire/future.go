package acquire

import (
	"context"
	"defectlens/pkg/artifact"
	"sync"
)

// Future is the single-resolution result of one acquisition.
type Future struct {
	done chan struct{}
	once sync.Once
	img  *artifact.Image
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func failed(err error) *Future {
	f := newFuture()
	f.resolve(nil, err)
	return f
}

func (f *Future) resolve(img *artifact.Image, err error) {
	f.once.Do(func() {
		f.img, f.err = img, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx ends. Giving up on ctx does
// not cancel the acquisition.
func (f *Future) Wait(ctx context.Context) (*artifact.Image, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
