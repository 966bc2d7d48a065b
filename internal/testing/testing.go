// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/snapshot"
)

// FirstPage is the cursor key [FakeFetcher] uses for the request without a cursor.
const FirstPage = ""

// Page builds a [models.Page]; an empty next means a terminal page.
func Page(next string, records ...models.Record) models.Page {
	p := models.Page{Records: records}
	if next != "" {
		p.NextCursor = &next
	}
	return p
}

type fakeResult struct {
	page models.Page
	err  error
	gate <-chan struct{}
}

// FakeFetcher is a scripted page source keyed by cursor.
//
// Every call is recorded and announced on Requested (without blocking). A gated cursor waits
// for its gate to close or for the context to be cancelled.
type FakeFetcher struct {
	mu        sync.Mutex
	results   map[string]fakeResult
	calls     []string
	Requested chan string
}

// NewFakeFetcher creates an empty [FakeFetcher].
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{results: make(map[string]fakeResult), Requested: make(chan string, 64)}
}

// On scripts the page returned for cursor.
func (f *FakeFetcher) On(cursor string, page models.Page) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[cursor]
	r.page, r.err = page, nil
	f.results[cursor] = r
	return f
}

// Fail scripts an error for cursor.
func (f *FakeFetcher) Fail(cursor string, err error) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[cursor]
	r.err = err
	f.results[cursor] = r
	return f
}

// Gate holds requests for cursor until gate is closed.
func (f *FakeFetcher) Gate(cursor string, gate <-chan struct{}) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[cursor]
	r.gate = gate
	f.results[cursor] = r
	return f
}

// FetchPage implements the loader's page source.
func (f *FakeFetcher) FetchPage(ctx context.Context, cursor *string) (models.Page, error) {
	key := FirstPage
	if cursor != nil {
		key = *cursor
	}

	f.mu.Lock()
	f.calls = append(f.calls, key)
	r, ok := f.results[key]
	f.mu.Unlock()

	select {
	case f.Requested <- key:
	default:
	}

	if r.gate != nil {
		select {
		case <-ctx.Done():
			return models.Page{}, ctx.Err()
		case <-r.gate:
		}
	}
	if err := ctx.Err(); err != nil {
		return models.Page{}, err
	}

	if !ok {
		return models.Page{}, fmt.Errorf("unexpected cursor %q", key)
	}
	if r.err != nil {
		return models.Page{}, r.err
	}
	return models.Page{Records: models.CloneRecords(r.page.Records), NextCursor: r.page.NextCursor}, nil
}

// Calls returns the cursors requested so far, "" for the first page.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FailingStore is a [snapshot.MemoryStore] whose writes can be made to fail.
type FailingStore struct {
	*snapshot.MemoryStore

	mu     sync.Mutex
	setErr error
	writes int
}

// NewFailingStore creates a [FailingStore] that succeeds until [FailingStore.FailWrites] is called.
func NewFailingStore() *FailingStore {
	return &FailingStore{MemoryStore: snapshot.NewMemoryStore()}
}

// FailWrites makes every subsequent Set return err. A nil err restores writes.
func (s *FailingStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

func (s *FailingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	err := s.setErr
	if err == nil {
		s.writes++
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.MemoryStore.Set(ctx, key, value)
}

// Writes counts successful Set calls.
func (s *FailingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
