package paging

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/snapshot"
	tu "github.com/desertthunder/roster/internal/testing"
)

const collection = "students"

func newLoader(f PageFetcher, store snapshot.Store, autoDrain bool, updates chan<- Update) *Loader {
	return NewLoader(f, store, Options{Collection: collection, AutoDrain: autoDrain, Updates: updates})
}

func seed(t *testing.T, store snapshot.Store, next string, records ...models.Record) {
	t.Helper()
	s := snapshot.Snapshot{Records: records}
	if next != "" {
		s.NextPageToken = &next
	}
	if err := snapshot.Save(context.Background(), store, collection, s); err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}
}

func awaitRequest(t *testing.T, f *tu.FakeFetcher, want string) {
	t.Helper()
	select {
	case got := <-f.Requested:
		if got != want {
			t.Fatalf("expected request for cursor %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for request with cursor %q", want)
	}
}

// gatedStore holds Get until gate is closed once gate is set, announcing the read on reading.
type gatedStore struct {
	*snapshot.MemoryStore
	gate    chan struct{}
	reading chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.gate != nil {
		s.reading <- struct{}{}
		<-s.gate
	}
	return s.MemoryStore.Get(ctx, key)
}

func drainUpdates(ch chan Update) []Update {
	var out []Update
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func phases(updates []Update) []Phase {
	out := make([]Phase, len(updates))
	for i, u := range updates {
		out[i] = u.Phase
	}
	return out
}

func TestLoaderScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("empty snapshot loads first page then schedules the next cursor", func(t *testing.T) {
		gate := make(chan struct{})
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1, "name": "A"})).
			On("c1", tu.Page("")).
			Gate("c1", gate)
		store := snapshot.NewMemoryStore()

		l := newLoader(f, store, true, nil)
		if err := l.Mount(ctx); err != nil {
			t.Fatalf("Mount() error = %v", err)
		}
		if l.Restored() {
			t.Error("expected no snapshot")
		}
		if !l.Start() {
			t.Fatal("expected Start to begin draining")
		}

		awaitRequest(t, f, tu.FirstPage)
		awaitRequest(t, f, "c1")

		if l.Len() != 1 {
			t.Errorf("expected 1 row while page 2 is in flight, got %d", l.Len())
		}
		if l.State() != FetchingNextPage {
			t.Errorf("expected FetchingNextPage, got %s", l.State())
		}

		close(gate)
		l.Wait()

		if l.State() != Drained {
			t.Errorf("expected Drained, got %s", l.State())
		}
	})

	t.Run("cached snapshot shows instantly and appends only new ids", func(t *testing.T) {
		store := snapshot.NewMemoryStore()
		seed(t, store, "c1", models.Record{"id": 1}, models.Record{"id": 2})

		f := tu.NewFakeFetcher().
			On("c1", tu.Page("", models.Record{"id": 2, "name": "dup"}, models.Record{"id": 3}))

		l := newLoader(f, store, true, nil)
		if err := l.Mount(ctx); err != nil {
			t.Fatalf("Mount() error = %v", err)
		}
		if l.Len() != 2 {
			t.Fatalf("expected 2 restored rows before any fetch, got %d", l.Len())
		}
		if len(f.Calls()) != 0 {
			t.Fatal("Mount must not fetch")
		}

		l.Start()
		l.Wait()

		got := l.Records()
		if !reflect.DeepEqual(keys(got), []string{"1", "2", "3"}) {
			t.Errorf("keys = %v, want [1 2 3]", keys(got))
		}
		if _, ok := got[1]["name"]; ok {
			t.Error("existing record 2 should not be replaced")
		}
		if !reflect.DeepEqual(f.Calls(), []string{"c1"}) {
			t.Errorf("expected to resume at c1, got %v", f.Calls())
		}
	})

	t.Run("existing wins and terminal cursor clears hasMore", func(t *testing.T) {
		store := snapshot.NewMemoryStore()
		seed(t, store, "c1", models.Record{"id": 1, "name": "A"}, models.Record{"id": 2, "name": "B"})

		f := tu.NewFakeFetcher().On("c1", tu.Page("", models.Record{"id": 2, "name": "B-updated"}))

		l := newLoader(f, store, true, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		rec, ok := Find(l.Records(), "2")
		if !ok || rec["name"] != "B" {
			t.Errorf("expected {id:2,name:B}, got %v", rec)
		}
		if l.HasMore() {
			t.Error("expected hasMore to be false")
		}
		if l.State() != Drained {
			t.Errorf("expected Drained, got %s", l.State())
		}
	})

	t.Run("error on page two halts with a notification", func(t *testing.T) {
		updates := make(chan Update, 32)
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1}, models.Record{"id": 2})).
			Fail("c1", errors.New("connection reset"))
		store := snapshot.NewMemoryStore()

		l := newLoader(f, store, true, updates)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		if l.State() != Halted {
			t.Fatalf("expected Halted, got %s", l.State())
		}
		if l.Len() != 2 {
			t.Errorf("expected page-1 rows to remain, got %d", l.Len())
		}
		if l.Err() == nil {
			t.Error("expected halt error")
		}

		var notified bool
		for _, u := range drainUpdates(updates) {
			if u.Notify() {
				notified = true
				if u.Err == nil || u.State != Halted {
					t.Errorf("unexpected notification %+v", u)
				}
			}
		}
		if !notified {
			t.Error("expected a notification")
		}

		if l.Start() {
			t.Error("a halted loader must not resume automatically")
		}
		if !reflect.DeepEqual(f.Calls(), []string{tu.FirstPage, "c1"}) {
			t.Errorf("unexpected requests %v", f.Calls())
		}

		s, _, _ := snapshot.Load(ctx, store, collection)
		if s.NextPageToken == nil || *s.NextPageToken != "c1" || len(s.Records) != 2 {
			t.Errorf("snapshot should hold page 1 and cursor c1, got %+v", s)
		}
	})

	t.Run("double load more issues one request", func(t *testing.T) {
		gate := make(chan struct{})
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			Gate(tu.FirstPage, gate)

		l := newLoader(f, snapshot.NewMemoryStore(), false, nil)
		_ = l.Mount(ctx)

		done := make(chan bool)
		go func() { done <- l.LoadMore(ctx) }()

		awaitRequest(t, f, tu.FirstPage)
		if l.LoadMore(ctx) {
			t.Error("second LoadMore should be a no-op")
		}
		if l.Start() {
			t.Error("Start should be suppressed while a fetch is in flight")
		}

		close(gate)
		if !<-done {
			t.Error("first LoadMore should report a fetch")
		}
		if len(f.Calls()) != 1 {
			t.Errorf("expected 1 request, got %v", f.Calls())
		}
		if l.State() != Idle || !l.HasMore() {
			t.Errorf("expected Idle with more pages, got %s", l.State())
		}
	})
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("drains every page in order", func(t *testing.T) {
		updates := make(chan Update, 32)
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			On("c1", tu.Page("c2", models.Record{"id": 2})).
			On("c2", tu.Page("", models.Record{"id": 3}))
		store := snapshot.NewMemoryStore()

		l := newLoader(f, store, true, updates)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		if !reflect.DeepEqual(keys(l.Records()), []string{"1", "2", "3"}) {
			t.Errorf("keys = %v", keys(l.Records()))
		}
		if l.Pages() != 3 {
			t.Errorf("expected 3 pages, got %d", l.Pages())
		}

		want := []Phase{PhaseRestored, PhaseFetching, PhaseMerged, PhaseFetching, PhaseMerged, PhaseFetching, PhaseDrained}
		if got := phases(drainUpdates(updates)); !reflect.DeepEqual(got, want) {
			t.Errorf("phases = %v, want %v", got, want)
		}
	})

	t.Run("persists before publishing", func(t *testing.T) {
		f := tu.NewFakeFetcher().On(tu.FirstPage, tu.Page("", models.Record{"id": 1, "gender": true}))
		store := snapshot.NewMemoryStore()

		l := newLoader(f, store, true, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		s, ok, err := snapshot.Load(ctx, store, collection)
		if err != nil || !ok {
			t.Fatalf("expected snapshot, ok=%v err=%v", ok, err)
		}
		if s.HasMore() {
			t.Error("expected null cursor in snapshot")
		}
		if len(s.Records) != 1 || s.Records[0]["gender"] != "Male" {
			t.Errorf("expected normalized record in snapshot, got %v", s.Records)
		}
	})

	t.Run("persist failure halts and keeps the old list", func(t *testing.T) {
		store := tu.NewFailingStore()
		seed(t, store, "c1", models.Record{"id": 1})
		store.FailWrites(errors.New("disk full"))

		f := tu.NewFakeFetcher().On("c1", tu.Page("", models.Record{"id": 2}))

		l := newLoader(f, store, true, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		if l.State() != Halted {
			t.Fatalf("expected Halted, got %s", l.State())
		}
		if l.Len() != 1 {
			t.Errorf("expected the previous list, got %d records", l.Len())
		}
		if !l.HasMore() {
			t.Error("the failed page should still be pending")
		}
	})

	t.Run("snapshot without cursor refreshes page one in append mode", func(t *testing.T) {
		store := snapshot.NewMemoryStore()
		seed(t, store, "", models.Record{"id": 1, "name": "cached"})

		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c2", models.Record{"id": 1, "name": "fresh"}, models.Record{"id": 4})).
			On("c2", tu.Page("", models.Record{"id": 5}))

		l := newLoader(f, store, true, nil)
		_ = l.Mount(ctx)
		if !l.HasMore() {
			t.Fatal("a restored list without cursor can still refresh")
		}
		l.Start()
		l.Wait()

		got := l.Records()
		if !reflect.DeepEqual(keys(got), []string{"1", "4", "5"}) {
			t.Errorf("keys = %v", keys(got))
		}
		if got[0]["name"] != "cached" {
			t.Errorf("cached record should win, got %v", got[0]["name"])
		}
	})

	t.Run("no auto drain stops after one page", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			On("c1", tu.Page("", models.Record{"id": 2}))

		l := newLoader(f, snapshot.NewMemoryStore(), false, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		if l.State() != Idle {
			t.Errorf("expected Idle, got %s", l.State())
		}
		if !l.LoadMore(ctx) {
			t.Fatal("expected LoadMore to fetch the next page")
		}
		if l.State() != Drained || l.Len() != 2 {
			t.Errorf("expected Drained with 2 records, got %s with %d", l.State(), l.Len())
		}
		if l.LoadMore(ctx) {
			t.Error("LoadMore on a drained list should be a no-op")
		}
		if len(f.Calls()) != 2 {
			t.Errorf("expected 2 requests, got %v", f.Calls())
		}
	})

	t.Run("manual trigger resumes a halted loader", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			Fail("c1", errors.New("timeout"))

		l := newLoader(f, snapshot.NewMemoryStore(), true, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()

		if l.State() != Halted {
			t.Fatalf("expected Halted, got %s", l.State())
		}

		f.On("c1", tu.Page("c2", models.Record{"id": 2})).On("c2", tu.Page("", models.Record{"id": 3}))
		if !l.LoadMore(ctx) {
			t.Fatal("expected LoadMore to retry the failed page")
		}
		l.Wait()

		if l.State() != Drained {
			t.Errorf("expected Drained after resuming, got %s", l.State())
		}
		if l.Len() != 3 || l.Err() != nil {
			t.Errorf("expected 3 records and no error, got %d, %v", l.Len(), l.Err())
		}
	})

	t.Run("unmount mid-fetch is silent", func(t *testing.T) {
		updates := make(chan Update, 32)
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			On("c1", tu.Page("", models.Record{"id": 2})).
			Gate("c1", make(chan struct{}))
		store := snapshot.NewMemoryStore()

		l := newLoader(f, store, true, updates)
		_ = l.Mount(ctx)
		l.Start()
		awaitRequest(t, f, tu.FirstPage)
		awaitRequest(t, f, "c1")

		l.Unmount()

		if l.State() != Unmounted {
			t.Errorf("expected Unmounted, got %s", l.State())
		}
		if l.Len() != 1 {
			t.Errorf("expected page-1 rows to remain, got %d", l.Len())
		}
		for _, u := range drainUpdates(updates) {
			if u.Notify() {
				t.Errorf("cancellation must not notify: %+v", u)
			}
		}
		if l.LoadMore(ctx) || l.Start() || l.HasMore() {
			t.Error("an unmounted loader must not fetch")
		}

		s, _, _ := snapshot.Load(ctx, store, collection)
		if len(s.Records) != 1 {
			t.Errorf("snapshot should hold only page 1, got %d", len(s.Records))
		}
	})

	t.Run("parent cancellation unmounts", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("", models.Record{"id": 1})).
			Gate(tu.FirstPage, make(chan struct{}))

		mctx, cancel := context.WithCancel(ctx)
		l := newLoader(f, snapshot.NewMemoryStore(), true, nil)
		_ = l.Mount(mctx)
		l.Start()
		awaitRequest(t, f, tu.FirstPage)

		cancel()
		l.Wait()

		if l.State() != Unmounted {
			t.Errorf("expected Unmounted, got %s", l.State())
		}
		if l.Err() != nil {
			t.Errorf("cancellation is not an error, got %v", l.Err())
		}
	})

	t.Run("cancelled load more returns to idle", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("", models.Record{"id": 1})).
			Gate(tu.FirstPage, make(chan struct{}))

		l := newLoader(f, snapshot.NewMemoryStore(), false, nil)
		_ = l.Mount(ctx)

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			<-f.Requested
			cancel()
		}()

		if !l.LoadMore(cctx) {
			t.Fatal("expected LoadMore to issue a request")
		}
		if l.State() != Idle || !l.HasMore() {
			t.Errorf("expected Idle with the page still pending, got %s", l.State())
		}
	})

	t.Run("remount restarts from the snapshot", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			Fail("c1", errors.New("invalid cursor"))
		store := snapshot.NewMemoryStore()

		l := newLoader(f, store, true, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()
		l.Unmount()

		if err := l.Mount(ctx); err != nil {
			t.Fatalf("remount error = %v", err)
		}
		if l.State() != Idle || !l.Restored() || l.Len() != 1 {
			t.Errorf("expected restored idle loader, got %s restored=%v len=%d", l.State(), l.Restored(), l.Len())
		}
	})

	t.Run("mount while fetching is rejected", func(t *testing.T) {
		gate := make(chan struct{})
		f := tu.NewFakeFetcher().On(tu.FirstPage, tu.Page("")).Gate(tu.FirstPage, gate)

		l := newLoader(f, snapshot.NewMemoryStore(), true, nil)
		_ = l.Mount(ctx)
		l.Start()
		awaitRequest(t, f, tu.FirstPage)

		if err := l.Mount(ctx); !errors.Is(err, shared.ErrLoaderBusy) {
			t.Errorf("expected ErrLoaderBusy, got %v", err)
		}
		close(gate)
		l.Wait()
	})

	t.Run("load more during a remount is refused", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			Fail("c1", errors.New("connection reset"))
		store := &gatedStore{MemoryStore: snapshot.NewMemoryStore()}

		l := newLoader(f, store, true, nil)
		_ = l.Mount(ctx)
		l.Start()
		l.Wait()
		if l.State() != Halted {
			t.Fatalf("expected Halted, got %s", l.State())
		}

		store.gate = make(chan struct{})
		store.reading = make(chan struct{})
		mounted := make(chan error, 1)
		go func() { mounted <- l.Mount(ctx) }()

		<-store.reading
		if l.LoadMore(ctx) {
			t.Error("LoadMore must not run while mounting")
		}
		if l.Start() {
			t.Error("Start must not run while mounting")
		}
		if err := l.Mount(ctx); !errors.Is(err, shared.ErrLoaderBusy) {
			t.Errorf("expected ErrLoaderBusy for a second mount, got %v", err)
		}
		close(store.gate)

		if err := <-mounted; err != nil {
			t.Fatalf("Mount() error = %v", err)
		}
		if l.State() != Idle || l.Len() != 1 {
			t.Errorf("expected restored idle loader, got %s len=%d", l.State(), l.Len())
		}
		if !reflect.DeepEqual(f.Calls(), []string{tu.FirstPage, "c1"}) {
			t.Errorf("unexpected requests %v", f.Calls())
		}
	})

	t.Run("corrupt snapshot is discarded", func(t *testing.T) {
		store := snapshot.NewMemoryStore()
		_ = store.Set(ctx, collection, []byte("{not json"))

		l := newLoader(tu.NewFakeFetcher(), store, true, nil)
		if err := l.Mount(ctx); err != nil {
			t.Fatalf("Mount() error = %v", err)
		}
		if l.Restored() || l.Len() != 0 {
			t.Error("expected a corrupt snapshot to be ignored")
		}
	})

	t.Run("not mounted", func(t *testing.T) {
		l := newLoader(tu.NewFakeFetcher(), snapshot.NewMemoryStore(), true, nil)
		if l.Start() || l.LoadMore(ctx) {
			t.Error("an unmounted loader must not fetch")
		}
	})

	t.Run("page pause spaces requests", func(t *testing.T) {
		f := tu.NewFakeFetcher().
			On(tu.FirstPage, tu.Page("c1", models.Record{"id": 1})).
			On("c1", tu.Page("c2", models.Record{"id": 2})).
			On("c2", tu.Page("", models.Record{"id": 3}))

		l := NewLoader(f, snapshot.NewMemoryStore(), Options{Collection: collection, AutoDrain: true, PagePause: 20 * time.Millisecond})
		_ = l.Mount(ctx)

		start := time.Now()
		l.Start()
		l.Wait()

		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("expected at least one pause between pages, took %v", elapsed)
		}
		if l.Len() != 3 {
			t.Errorf("expected 3 records, got %d", l.Len())
		}
	})
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Idle:              "idle",
		FetchingFirstPage: "fetching_first_page",
		FetchingNextPage:  "fetching_next_page",
		Drained:           "drained",
		Halted:            "halted",
		Unmounted:         "unmounted",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
