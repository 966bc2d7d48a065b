package paging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/snapshot"
)

// PageFetcher returns one page of a collection. A nil cursor requests the first page.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor *string) (models.Page, error)
}

// Options configures a [Loader].
type Options struct {
	Collection string        // Snapshot key and label for updates
	AutoDrain  bool          // Keep fetching after each page until the cursor runs out
	PagePause  time.Duration // Minimum spacing between automatic page requests
	Logger     *log.Logger
	Updates    chan<- Update // Optional; sends never block
}

type request struct {
	mode   Mode
	cursor *string
}

func (r request) state() State {
	if r.cursor == nil {
		return FetchingFirstPage
	}
	return FetchingNextPage
}

// Loader keeps one collection's list in sync with the backend and the snapshot store.
//
// All state transitions happen under a single mutex. At most one page request is in flight.
type Loader struct {
	fetcher    PageFetcher
	store      snapshot.Store
	collection string
	autoDrain  bool
	limiter    *rate.Limiter
	logger     *log.Logger
	updates    chan<- Update

	mu       sync.Mutex
	state    State
	records  []models.Record
	cursor   *string
	next     *request
	restored bool
	mounting bool
	pages    int
	err      error
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewLoader creates an unmounted [Loader]. Call [Loader.Mount] before anything else.
func NewLoader(fetcher PageFetcher, store snapshot.Store, opts Options) *Loader {
	limit := rate.Inf
	if opts.PagePause > 0 {
		limit = rate.Every(opts.PagePause)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Loader{
		fetcher:    fetcher,
		store:      store,
		collection: opts.Collection,
		autoDrain:  opts.AutoDrain,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With("collection", opts.Collection),
		updates:    opts.Updates,
		state:      Idle,
	}
}

// Mount seeds the list from the snapshot store and scopes all later fetches to ctx.
//
// An unreadable snapshot is discarded with a warning. Remounting resets the loader, which is how
// a halted or unmounted loader starts over. Start and LoadMore refuse to run until it returns.
func (l *Loader) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.state.Fetching() || l.mounting {
		l.mu.Unlock()
		return shared.ErrLoaderBusy
	}
	l.mounting = true
	l.mu.Unlock()
	l.wg.Wait()

	snap, ok, err := snapshot.Load(ctx, l.store, l.collection)
	if err != nil {
		if ctx.Err() != nil {
			l.mu.Lock()
			l.mounting = false
			l.mu.Unlock()
			return ctx.Err()
		}
		l.logger.Warn("discarding unreadable snapshot", "error", err)
		ok = false
	}

	mctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.ctx, l.cancel = mctx, cancel
	l.mounting = false
	l.state = Idle
	l.pages = 0
	l.err = nil
	l.restored = ok

	if ok {
		l.records = Merge(nil, snap.Records, ModeAppend)
		l.cursor = snap.NextPageToken
		l.next = &request{mode: ModeAppend, cursor: snap.NextPageToken}
	} else {
		l.records = nil
		l.cursor = nil
		l.next = &request{mode: ModeReplace}
	}
	u := restoredUpdate(l.collection, len(l.records), ok, l.next != nil)
	l.mu.Unlock()

	l.logger.Debug("mounted", "restored", ok, "records", u.Records)
	l.emit(u)
	return nil
}

// Start begins draining in the background. It returns false when the loader is not idle or has
// nothing left to fetch.
//
// Without a snapshot the first page replaces the list. A restored snapshot resumes at its cursor,
// or refreshes page one in append mode when it had none.
func (l *Loader) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx == nil || l.mounting || l.state != Idle || l.next == nil {
		return false
	}

	req := *l.next
	l.state = req.state()
	ctx := l.ctx

	l.wg.Add(1)
	go l.drain(ctx, req)
	return true
}

// LoadMore fetches exactly one page and blocks until it is merged.
//
// It returns false without fetching when another request is in flight, the list is drained, or
// the loader is unmounted. A halted loader retries the failed page and, when auto-drain is on,
// resumes draining afterwards.
func (l *Loader) LoadMore(ctx context.Context) bool {
	l.mu.Lock()
	if l.ctx == nil || l.mounting || (l.state != Idle && l.state != Halted) || l.next == nil {
		l.mu.Unlock()
		return false
	}

	wasHalted := l.state == Halted
	req := *l.next
	l.state = req.state()
	mctx := l.ctx
	l.wg.Add(1)
	l.mu.Unlock()

	fctx, cancel := context.WithCancel(mctx)
	stop := context.AfterFunc(ctx, cancel)

	ok := l.fetch(fctx, req, false)

	stop()
	cancel()
	l.wg.Done()

	if ok && wasHalted && l.autoDrain {
		l.Start()
	}
	return true
}

// Unmount cancels any in-flight request and stops the drain. No update is emitted.
//
// It blocks until background work has returned.
func (l *Loader) Unmount() {
	l.mu.Lock()
	if l.state == Unmounted {
		l.mu.Unlock()
		return
	}
	l.state = Unmounted
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Debug("unmounted")
}

// Wait blocks until the background drain has stopped.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) drain(ctx context.Context, req request) {
	defer l.wg.Done()

	for {
		if !l.fetch(ctx, req, l.autoDrain) {
			return
		}

		l.mu.Lock()
		if l.state != FetchingNextPage || l.next == nil {
			l.mu.Unlock()
			return
		}
		req = *l.next
		l.mu.Unlock()

		if err := l.limiter.Wait(ctx); err != nil {
			l.abort()
			return
		}
	}
}

// fetch requests one page, persists the merge, then publishes it. It returns true when the
// page became visible.
func (l *Loader) fetch(ctx context.Context, req request, continuing bool) bool {
	l.mu.Lock()
	l.emit(fetchingUpdate(l.collection, l.state, l.pages, len(l.records)))
	l.mu.Unlock()

	page, err := l.fetcher.FetchPage(ctx, req.cursor)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			l.abort()
			return false
		}
		l.halt(fmt.Errorf("failed to fetch %s page: %w", l.collection, err))
		return false
	}

	l.mu.Lock()
	if l.state == Unmounted {
		l.mu.Unlock()
		return false
	}
	current := l.records
	l.mu.Unlock()

	merged := Merge(current, page.Records, req.mode)

	snap := snapshot.Snapshot{Records: merged, NextPageToken: page.NextCursor}
	if err := snapshot.Save(ctx, l.store, l.collection, snap); err != nil {
		if ctx.Err() != nil {
			l.abort()
			return false
		}
		l.halt(err)
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Unmounted {
		return false
	}

	added := len(merged) - len(current)
	if req.mode == ModeReplace {
		added = len(merged)
	}

	l.records = merged
	l.cursor = page.NextCursor
	l.pages++
	l.err = nil

	switch {
	case page.NextCursor == nil:
		l.next = nil
		l.state = Drained
	case continuing:
		l.next = &request{mode: ModeAppend, cursor: page.NextCursor}
		l.state = FetchingNextPage
	default:
		l.next = &request{mode: ModeAppend, cursor: page.NextCursor}
		l.state = Idle
	}

	l.logger.Debug("merged page", "page", l.pages, "added", added, "records", len(merged), "state", l.state)
	l.emit(mergedUpdate(l.collection, l.state, l.pages, len(merged), added, l.next != nil))
	return true
}

// abort handles a cancelled request. Cancelling the mount unmounts the loader; cancelling only
// a caller's context returns it to idle with the same request pending.
func (l *Loader) abort() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Unmounted {
		return
	}
	if l.ctx != nil && l.ctx.Err() != nil {
		l.state = Unmounted
		return
	}
	l.state = Idle
}

func (l *Loader) halt(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Unmounted {
		return
	}
	l.state = Halted
	l.err = err

	l.logger.Error("loader halted", "page", l.pages+1, "error", err)
	l.emit(haltedUpdate(l.collection, l.pages, len(l.records), l.next != nil, err))
}

func (l *Loader) emit(u Update) {
	if l.updates == nil {
		return
	}
	select {
	case l.updates <- u:
	default:
	}
}

// Records returns a copy of the current list.
func (l *Loader) Records() []models.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.CloneRecords(l.records)
}

// Len returns the number of records in the list.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Cursor returns the cursor of the last merged page or restored snapshot.
func (l *Loader) Cursor() *string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// HasMore reports whether another page can be requested.
func (l *Loader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next != nil && l.state != Unmounted
}

// State returns the current loader state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error that halted the loader, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Restored reports whether the last mount found a snapshot.
func (l *Loader) Restored() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.restored
}

// Pages returns the number of pages merged since mount.
func (l *Loader) Pages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages
}

// Collection returns the collection name.
func (l *Loader) Collection() string {
	return l.collection
}
