package acquire

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"defectlens/pkg/downloader"
	"defectlens/pkg/linknorm"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFetcher serves results by fetch URL. URLs listed in gates block until
// their channel is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]error
	gates   map[string]chan struct{}
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{results: map[string]error{}, gates: map[string]chan struct{}{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, link linknorm.Link, task display.Task) (*artifact.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, link.FetchURL)
	gate := f.gates[link.FetchURL]
	err := f.results[link.FetchURL]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return artifact.New([]byte(link.FetchURL), "image/jpeg", link.SuggestedName)
}

func (f *fakeFetcher) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recorder struct {
	mu   sync.Mutex
	imgs []*artifact.Image
}

func (r *recorder) onAcquired(_ context.Context, img *artifact.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imgs = append(r.imgs, img)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.imgs)
}

func wait(t *testing.T, f *Future) (*artifact.Image, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	img, err := f.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Future did not resolve")
	}
	return img, err
}

func TestFromFileValidation(t *testing.T) {
	_, err := FromFile(LocalFile{Name: "notes.txt", MimeType: "text/plain", Data: []byte("x")}, 0)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	var nai *artifact.NotAnImageError
	if !errors.As(err, &nai) {
		t.Errorf("Expected NotAnImageError in chain, got %v", err)
	}
	var ue *UserError
	if !errors.As(err, &ue) || !strings.Contains(ue.Message, "notes.txt") {
		t.Errorf("Expected UserError naming the file, got %v", err)
	}

	img, err := FromFile(LocalFile{Name: "w.png", MimeType: "image/png", Data: []byte{1}}, 0)
	if err != nil || img.MimeType != "image/png" {
		t.Errorf("Expected image, got %v %v", img, err)
	}

	_, err = FromFile(LocalFile{Name: "big.png", MimeType: "image/png", Data: make([]byte, 10)}, 5)
	if !errors.Is(err, artifact.ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestReadLocalFileDeclaresTypeFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.JPG")
	if err := os.WriteFile(path, []byte("not really a jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := ReadLocalFile(path, 0)
	if err != nil {
		t.Fatalf("ReadLocalFile failed: %v", err)
	}
	if f.Name != "frame.JPG" || !strings.HasPrefix(f.MimeType, "image/jpeg") {
		t.Errorf("Unexpected file %q %q", f.Name, f.MimeType)
	}

	txt := filepath.Join(dir, "readme.txt")
	os.WriteFile(txt, []byte("hi"), 0644)
	f, _ = ReadLocalFile(txt, 0)
	if _, err := FromFile(f, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected text file to fail validation, got %v", err)
	}
}

func TestAcquireFromFile(t *testing.T) {
	rec := &recorder{}
	o := New(newFakeFetcher(), rec.onAcquired)
	img, err := wait(t, o.AcquireFromFile(context.Background(), LocalFile{Name: "a.png", MimeType: "image/png", Data: []byte{1, 2}}))
	if err != nil {
		t.Fatalf("AcquireFromFile failed: %v", err)
	}
	if img.Name != "a.png" || rec.count() != 1 {
		t.Errorf("Expected one hand-off of a.png, got %d", rec.count())
	}
	if o.Active() != SourceFile {
		t.Errorf("Expected file source active, got %s", o.Active())
	}

	_, err = wait(t, o.AcquireFromFile(context.Background(), LocalFile{Name: "a.txt", MimeType: "text/plain"}))
	if !errors.Is(err, ErrValidation) || rec.count() != 1 {
		t.Errorf("Expected validation failure without hand-off, got %v", err)
	}
}

func TestAcquireFromURLSuccessClearsInput(t *testing.T) {
	rec := &recorder{}
	f := newFakeFetcher()
	o := New(f, rec.onAcquired)

	raw := "https://drive.google.com/file/d/XYZ123/view?usp=sharing"
	img, err := wait(t, o.AcquireFromURL(context.Background(), raw))
	if err != nil {
		t.Fatalf("AcquireFromURL failed: %v", err)
	}
	if string(img.Data) != "https://drive.google.com/uc?export=view&id=XYZ123" {
		t.Errorf("Expected normalized fetch, got %q", img.Data)
	}
	if img.Name != "drive_image_1.jpg" {
		t.Errorf("Unexpected name %q", img.Name)
	}
	if rec.count() != 1 {
		t.Errorf("Expected exactly one hand-off, got %d", rec.count())
	}
	if o.URLInput() != "" {
		t.Errorf("Expected URL input cleared, got %q", o.URLInput())
	}
}

func TestAcquireFromURLFailureKeepsInput(t *testing.T) {
	rec := &recorder{}
	f := newFakeFetcher()
	raw := "https://drive.google.com/file/d/XYZ123/view"
	f.results["https://drive.google.com/uc?export=view&id=XYZ123"] = &downloader.FetchError{Status: 404, StatusText: "Not Found"}
	o := New(f, rec.onAcquired)

	_, err := wait(t, o.AcquireFromURL(context.Background(), raw))
	var ue *UserError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UserError, got %v", err)
	}
	if !strings.Contains(ue.Message, "404") {
		t.Errorf("Expected status in message, got %q", ue.Message)
	}
	if ue.Provider != linknorm.ProviderGoogleDrive || !strings.Contains(ue.Remediation, "publicly shared") {
		t.Errorf("Expected Drive remediation, got %+v", ue)
	}
	var fe *downloader.FetchError
	if !errors.As(err, &fe) {
		t.Errorf("Expected FetchError in chain")
	}
	if o.URLInput() != raw {
		t.Errorf("Expected URL input preserved, got %q", o.URLInput())
	}
	if rec.count() != 0 {
		t.Errorf("Expected no hand-off on failure")
	}

	// retry is allowed after a failure
	delete(f.results, "https://drive.google.com/uc?export=view&id=XYZ123")
	if _, err := wait(t, o.AcquireFromURL(context.Background(), raw)); err != nil {
		t.Errorf("Expected retry to succeed, got %v", err)
	}
}

func TestAcquireFromURLBusy(t *testing.T) {
	f := newFakeFetcher()
	gate := f.gate("https://example.com/slow.png")
	o := New(f, nil)

	first := o.AcquireFromURL(context.Background(), "https://example.com/slow.png")
	_, err := wait(t, o.AcquireFromURL(context.Background(), "https://example.com/other.png"))
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	close(gate)
	if _, err := wait(t, first); err != nil {
		t.Errorf("Expected first acquisition to succeed, got %v", err)
	}
}

func TestLateResultAfterSwitchIsDiscarded(t *testing.T) {
	rec := &recorder{}
	f := newFakeFetcher()
	gate := f.gate("https://example.com/slow.png")
	o := New(f, rec.onAcquired)

	fut := o.AcquireFromURL(context.Background(), "https://example.com/slow.png")
	o.Activate(SourceFile)
	if o.URLInput() != "" {
		t.Errorf("Expected URL input cleared on switch")
	}
	close(gate)

	_, err := wait(t, fut)
	if !errors.Is(err, ErrSuperseded) {
		t.Errorf("Expected ErrSuperseded, got %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("Late result must not be handed off")
	}
}

func TestBatchMalformedInput(t *testing.T) {
	o := New(newFakeFetcher(), nil)
	for _, in := range []string{"", "   \n  ", "\r\n\t"} {
		_, err := wait(t, o.AcquireFromURLBatch(in))
		if !errors.Is(err, ErrMalformedBatchInput) {
			t.Errorf("Expected ErrMalformedBatchInput for %q, got %v", in, err)
		}
		if o.Batch() != nil {
			t.Errorf("Expected no batch for %q", in)
		}
	}
}

func TestBatchSplitsLines(t *testing.T) {
	o := New(newFakeFetcher(), nil)
	fut := o.AcquireFromURLBatch("a\n\nb\n  \nc")
	select {
	case <-fut.Done():
		t.Fatalf("Batch future must stay pending until an item is handed off")
	default:
	}
	items := o.Batch().Items()
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if items[i].Link.OriginalURL != want || items[i].Status != StatusIdle {
			t.Errorf("Item %d: got %+v", i, items[i])
		}
	}
}

func TestBatchItemFailureIsScoped(t *testing.T) {
	rec := &recorder{}
	f := newFakeFetcher()
	f.results["https://www.dropbox.com/s/x/a.jpg?dl=1"] = &artifact.NotAnImageError{URL: "x", ContentType: "text/html"}
	o := New(f, rec.onAcquired)

	batchFut := o.AcquireFromURLBatch("https://www.dropbox.com/s/x/a.jpg?dl=0\nhttps://example.com/b.png")

	_, err := wait(t, o.FetchBatchItem(context.Background(), 0))
	var ue *UserError
	if !errors.As(err, &ue) || !strings.Contains(ue.Remediation, "?dl=0") {
		t.Fatalf("Expected Dropbox remediation, got %v", err)
	}
	items := o.Batch().Items()
	if items[0].Status != StatusFailed || items[0].Err == nil {
		t.Errorf("Expected item 0 failed, got %+v", items[0])
	}
	if items[1].Status != StatusIdle {
		t.Errorf("Sibling must be untouched, got %s", items[1].Status)
	}
	if f.callCount() != 1 {
		t.Errorf("Expected only the triggered item fetched, got %d", f.callCount())
	}

	img, err := wait(t, o.FetchBatchItem(context.Background(), 1))
	if err != nil {
		t.Fatalf("Expected item 1 to succeed, got %v", err)
	}
	if img.Name != "image_2.png" {
		t.Errorf("Unexpected name %q", img.Name)
	}
	batchImg, err := wait(t, batchFut)
	if err != nil || batchImg != img {
		t.Errorf("Expected batch future to resolve with the handed-off image, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("Expected one hand-off, got %d", rec.count())
	}
	if o.Batch() != nil {
		t.Errorf("Expected batch session discarded after hand-off")
	}
}

func TestBatchItemRetryAndBusy(t *testing.T) {
	f := newFakeFetcher()
	f.results["https://example.com/a.png"] = errors.New("connection reset")
	o := New(f, nil)
	o.AcquireFromURLBatch("https://example.com/a.png")

	if _, err := wait(t, o.FetchBatchItem(context.Background(), 0)); err == nil {
		t.Fatalf("Expected first attempt to fail")
	}

	delete(f.results, "https://example.com/a.png")
	gate := f.gate("https://example.com/a.png")
	retry := o.FetchBatchItem(context.Background(), 0)
	if st, _ := o.Batch().Item(0); st.Status != StatusLoading {
		t.Errorf("Expected loading, got %s", st.Status)
	}
	if _, err := wait(t, o.FetchBatchItem(context.Background(), 0)); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for a loading item, got %v", err)
	}
	if _, err := wait(t, o.FetchBatchItem(context.Background(), 5)); !errors.Is(err, ErrNoSuchItem) {
		t.Errorf("Expected ErrNoSuchItem, got %v", err)
	}
	close(gate)
	if _, err := wait(t, retry); err != nil {
		t.Errorf("Expected retry to succeed, got %v", err)
	}
}

func TestConcurrentBatchItemsHandOffOnce(t *testing.T) {
	var handed atomic.Int32
	f := newFakeFetcher()
	gateA := f.gate("https://example.com/a.png")
	gateB := f.gate("https://example.com/b.png")
	o := New(f, func(context.Context, *artifact.Image) { handed.Add(1) })
	o.AcquireFromURLBatch("https://example.com/a.png\nhttps://example.com/b.png")

	a := o.FetchBatchItem(context.Background(), 0)
	b := o.FetchBatchItem(context.Background(), 1)
	close(gateA)
	if _, err := wait(t, a); err != nil {
		t.Fatalf("Expected a to succeed, got %v", err)
	}
	close(gateB)
	if _, err := wait(t, b); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Expected b to be superseded, got %v", err)
	}
	if handed.Load() != 1 {
		t.Errorf("Expected exactly one hand-off, got %d", handed.Load())
	}
}

func TestSameURLItemsAreIndependent(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	var once sync.Once
	releaseAll := func() { once.Do(func() { close(release) }) }

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer ts.Close()
	defer releaseAll()

	o := New(downloader.New(downloader.Config{}), nil)
	o.AcquireFromURLBatch(ts.URL + "/same.png\n" + ts.URL + "/same.png")
	b := o.Batch()

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := o.FetchBatchItem(ctx1, 0)
	<-started
	second := o.FetchBatchItem(context.Background(), 1)

	cancel1()
	if _, err := wait(t, first); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected item 1 to be cancelled, got %v", err)
	}
	releaseAll()

	img, err := wait(t, second)
	if err != nil {
		t.Fatalf("Expected item 2 to survive its sibling's cancel, got %v", err)
	}
	if string(img.Data) != "png-bytes" {
		t.Errorf("Unexpected data %q", img.Data)
	}
	items := b.Items()
	if items[0].Status != StatusFailed || items[1].Status != StatusReady {
		t.Errorf("Expected failed/ready, got %s/%s", items[0].Status, items[1].Status)
	}
}

func TestCloseBatch(t *testing.T) {
	o := New(newFakeFetcher(), nil)
	fut := o.AcquireFromURLBatch("https://example.com/a.png")
	o.CloseBatch()
	if _, err := wait(t, fut); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Expected ErrSuperseded after close, got %v", err)
	}
	if _, err := wait(t, o.FetchBatchItem(context.Background(), 0)); !errors.Is(err, ErrNoBatch) {
		t.Errorf("Expected ErrNoBatch, got %v", err)
	}
}

func TestUserErrorFull(t *testing.T) {
	ue := &UserError{Message: "m", Remediation: "r"}
	if ue.Full() != "m\n\nr" || ue.Error() != "m" {
		t.Errorf("Unexpected rendering %q / %q", ue.Full(), ue.Error())
	}
}
