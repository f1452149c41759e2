package ingest_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
	"newsbot/internal/usecase/ingest"
)

type fakeSources struct {
	active []*entity.Source
}

func (f *fakeSources) Get(_ context.Context, _ int64) (*entity.Source, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeSources) List(_ context.Context) ([]*entity.Source, error) { return f.active, nil }
func (f *fakeSources) ListActive(_ context.Context) ([]*entity.Source, error) {
	return f.active, nil
}
func (f *fakeSources) ListActiveByType(_ context.Context, t entity.SourceType) ([]*entity.Source, error) {
	var out []*entity.Source
	for _, s := range f.active {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeSources) Create(_ context.Context, _ *entity.Source) error { return nil }
func (f *fakeSources) Update(_ context.Context, _ *entity.Source) error { return nil }
func (f *fakeSources) Delete(_ context.Context, _ int64) error         { return nil }
func (f *fakeSources) TouchCrawledAt(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

type fakeItems struct {
	bySourceExt map[string]bool
	created     []*entity.RawItem
	nextID      int64
}

func newFakeItems() *fakeItems {
	return &fakeItems{bySourceExt: map[string]bool{}}
}

func key(sourceID int64, externalID string) string {
	return fmt.Sprintf("%d:%s", sourceID, externalID)
}

func (f *fakeItems) Get(_ context.Context, _ int64) (*entity.RawItem, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeItems) ExistsByExternalID(_ context.Context, sourceID int64, externalID string) (bool, error) {
	return f.bySourceExt[key(sourceID, externalID)], nil
}
func (f *fakeItems) Create(_ context.Context, item *entity.RawItem) error {
	f.nextID++
	item.ID = f.nextID
	f.bySourceExt[key(item.SourceID, item.ExternalID)] = true
	f.created = append(f.created, item)
	return nil
}
func (f *fakeItems) ListByStatus(_ context.Context, _ entity.ItemStatus, _ int) ([]*entity.RawItem, error) {
	return nil, nil
}
func (f *fakeItems) UpdateStatus(_ context.Context, _ int64, _ entity.ItemStatus) error { return nil }
func (f *fakeItems) FindCandidatesSince(_ context.Context, _ time.Time, _ repository.RawItemFilters) ([]*entity.RawItem, error) {
	return nil, nil
}
func (f *fakeItems) FindByTitleWindow(_ context.Context, _ string, _ time.Time) ([]*entity.RawItem, error) {
	return nil, nil
}
func (f *fakeItems) FindByURL(_ context.Context, _ string) (*entity.RawItem, error) { return nil, nil }

type stubIngester struct {
	sourceType entity.SourceType
	items      []*entity.RawItem
	err        error
}

func (s stubIngester) SourceType() entity.SourceType { return s.sourceType }
func (s stubIngester) Fetch(_ context.Context, _ *entity.Source) ([]*entity.RawItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type stubDedup struct {
	calls int
}

func (d *stubDedup) CheckExactDuplicate(_ context.Context, _ *entity.RawItem) (bool, error) {
	d.calls++
	return false, nil
}

func mkRawItem(externalID, title string) *entity.RawItem {
	return &entity.RawItem{
		SourceID: 1, ExternalID: externalID, URL: "https://example.com/" + externalID,
		Title: title, Kind: entity.ItemKindArticle, FetchedAt: time.Now(),
	}
}

func TestRunSource_InsertsNewItems(t *testing.T) {
	src := &entity.Source{ID: 1, Name: "Feed", Type: entity.SourceTypeFeed, URL: "https://feed.example/rss", Enabled: true, CredibilityTier: 3}
	sources := &fakeSources{active: []*entity.Source{src}}
	items := newFakeItems()
	ig := stubIngester{sourceType: entity.SourceTypeFeed, items: []*entity.RawItem{mkRawItem("a", "Story A"), mkRawItem("b", "Story B")}}

	svc := ingest.NewService(sources, items, nil, nil, ig)
	res, err := svc.RunSource(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 2 || res.Inserted != 2 || res.Skipped != 0 {
		t.Fatalf("want 2 fetched/2 inserted/0 skipped, got %+v", res)
	}
	if len(items.created) != 2 {
		t.Fatalf("want 2 items created, got %d", len(items.created))
	}
}

func TestRunSource_IdempotentOnRepeat(t *testing.T) {
	// Spec §8 round-trip law: re-ingesting an unchanged listing inserts
	// zero new items the second time.
	src := &entity.Source{ID: 1, Name: "Feed", Type: entity.SourceTypeFeed, URL: "https://feed.example/rss", Enabled: true, CredibilityTier: 3}
	sources := &fakeSources{active: []*entity.Source{src}}
	items := newFakeItems()
	listing := []*entity.RawItem{mkRawItem("a", "Story A"), mkRawItem("b", "Story B")}
	ig := stubIngester{sourceType: entity.SourceTypeFeed, items: listing}

	svc := ingest.NewService(sources, items, nil, nil, ig)

	first, err := svc.RunSource(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}
	if first.Inserted != 2 {
		t.Fatalf("want 2 inserted on first run, got %d", first.Inserted)
	}

	// Second run receives the identical listing; the ingester is expected
	// to hand back fresh RawItem values (unsaved IDs) as a real Fetch
	// would, so we rebuild them rather than reuse the first run's pointers.
	ig2 := stubIngester{sourceType: entity.SourceTypeFeed, items: []*entity.RawItem{mkRawItem("a", "Story A"), mkRawItem("b", "Story B")}}
	svc2 := ingest.NewService(sources, items, nil, nil, ig2)

	second, err := svc2.RunSource(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if second.Inserted != 0 {
		t.Fatalf("want 0 new inserts on repeat ingest, got %d", second.Inserted)
	}
	if second.Skipped != 2 {
		t.Fatalf("want both items skipped as duplicates, got %d", second.Skipped)
	}
	if len(items.created) != 2 {
		t.Fatalf("want total created items to remain 2 after repeat ingest, got %d", len(items.created))
	}
}

func TestRunSource_NoIngesterRegistered(t *testing.T) {
	src := &entity.Source{ID: 1, Name: "Feed", Type: entity.SourceTypeReddit, URL: "https://reddit.example", Enabled: true, CredibilityTier: 3}
	sources := &fakeSources{active: []*entity.Source{src}}
	items := newFakeItems()
	svc := ingest.NewService(sources, items, nil, nil, stubIngester{sourceType: entity.SourceTypeFeed})

	if _, err := svc.RunSource(context.Background(), src); err == nil {
		t.Fatalf("want an error for a source type with no registered ingester")
	}
}

func TestRunSource_ZeroItems_NoErrors(t *testing.T) {
	// Spec §8 boundary case: max_items_per_source = 0 / an empty listing
	// yields zero inserts without error.
	src := &entity.Source{ID: 1, Name: "Feed", Type: entity.SourceTypeFeed, URL: "https://feed.example/rss", Enabled: true, CredibilityTier: 3}
	sources := &fakeSources{active: []*entity.Source{src}}
	items := newFakeItems()
	svc := ingest.NewService(sources, items, nil, nil, stubIngester{sourceType: entity.SourceTypeFeed, items: nil})

	res, err := svc.RunSource(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 0 || res.Inserted != 0 {
		t.Fatalf("want zero fetched/inserted for an empty listing, got %+v", res)
	}
}

func TestRunSource_InvokesExactDuplicateCheckPerInsert(t *testing.T) {
	src := &entity.Source{ID: 1, Name: "Feed", Type: entity.SourceTypeFeed, URL: "https://feed.example/rss", Enabled: true, CredibilityTier: 3}
	sources := &fakeSources{active: []*entity.Source{src}}
	items := newFakeItems()
	dedup := &stubDedup{}
	ig := stubIngester{sourceType: entity.SourceTypeFeed, items: []*entity.RawItem{mkRawItem("a", "Story A")}}

	svc := ingest.NewService(sources, items, dedup, nil, ig)
	if _, err := svc.RunSource(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dedup.calls != 1 {
		t.Fatalf("want exact-duplicate check invoked once per inserted item, got %d calls", dedup.calls)
	}
}

func TestRunAll_ContinuesPastOneSourceFailure(t *testing.T) {
	good := &entity.Source{ID: 1, Name: "Good", Type: entity.SourceTypeFeed, URL: "https://good.example/rss", Enabled: true, CredibilityTier: 3}
	bad := &entity.Source{ID: 2, Name: "Bad", Type: entity.SourceTypeHN, URL: "https://bad.example", Enabled: true, CredibilityTier: 3}
	sources := &fakeSources{active: []*entity.Source{good, bad}}
	items := newFakeItems()

	feedIg := stubIngester{sourceType: entity.SourceTypeFeed, items: []*entity.RawItem{mkRawItem("a", "Story A")}}
	hnIg := stubIngester{sourceType: entity.SourceTypeHN, err: context.DeadlineExceeded}

	svc := ingest.NewService(sources, items, nil, nil, feedIg, hnIg)
	results, err := svc.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll itself should not fail on a single source error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 successful source result (the failing source is dropped, not retried inline), got %d", len(results))
	}
	if results[0].SourceID != good.ID {
		t.Fatalf("want the successful source's result, got source id %d", results[0].SourceID)
	}
}
