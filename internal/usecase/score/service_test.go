package score_test

import (
	"context"
	"testing"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
	"newsbot/internal/usecase/score"
)

type fakeItems struct {
	byID map[int64]*entity.RawItem
}

func (f *fakeItems) Get(_ context.Context, id int64) (*entity.RawItem, error) {
	if it, ok := f.byID[id]; ok {
		return it, nil
	}
	return nil, entity.ErrNotFound
}
func (f *fakeItems) ExistsByExternalID(_ context.Context, _ int64, _ string) (bool, error) {
	return false, nil
}
func (f *fakeItems) Create(_ context.Context, item *entity.RawItem) error {
	f.byID[item.ID] = item
	return nil
}
func (f *fakeItems) ListByStatus(_ context.Context, status entity.ItemStatus, limit int) ([]*entity.RawItem, error) {
	var out []*entity.RawItem
	for _, it := range f.byID {
		if it.Status == status {
			out = append(out, it)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeItems) UpdateStatus(_ context.Context, id int64, status entity.ItemStatus) error {
	if it, ok := f.byID[id]; ok {
		it.Status = status
	}
	return nil
}
func (f *fakeItems) FindCandidatesSince(_ context.Context, _ time.Time, _ repository.RawItemFilters) ([]*entity.RawItem, error) {
	return nil, nil
}
func (f *fakeItems) FindByTitleWindow(_ context.Context, _ string, _ time.Time) ([]*entity.RawItem, error) {
	return nil, nil
}
func (f *fakeItems) FindByURL(_ context.Context, _ string) (*entity.RawItem, error) {
	return nil, nil
}

type fakeContent struct {
	byItem map[int64]*entity.ExtractedContent
}

func (f *fakeContent) Create(_ context.Context, c *entity.ExtractedContent) error {
	f.byItem[c.RawItemID] = c
	return nil
}
func (f *fakeContent) GetByRawItemID(_ context.Context, id int64) (*entity.ExtractedContent, error) {
	if c, ok := f.byItem[id]; ok {
		return c, nil
	}
	return nil, nil
}

type fakeSources struct {
	byID map[int64]*entity.Source
}

func (f *fakeSources) Get(_ context.Context, id int64) (*entity.Source, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, entity.ErrNotFound
}
func (f *fakeSources) List(_ context.Context) ([]*entity.Source, error) { return nil, nil }
func (f *fakeSources) ListActive(_ context.Context) ([]*entity.Source, error) {
	return nil, nil
}
func (f *fakeSources) ListActiveByType(_ context.Context, _ entity.SourceType) ([]*entity.Source, error) {
	return nil, nil
}
func (f *fakeSources) Create(_ context.Context, s *entity.Source) error {
	f.byID[s.ID] = s
	return nil
}
func (f *fakeSources) Update(_ context.Context, s *entity.Source) error {
	f.byID[s.ID] = s
	return nil
}
func (f *fakeSources) Delete(_ context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}
func (f *fakeSources) TouchCrawledAt(_ context.Context, _ int64, _ time.Time) error { return nil }

type fakeClusters struct {
	memberOf map[int64]int64 // rawItemID -> clusterID
	size     map[int64]int   // clusterID -> member count
}

func (f *fakeClusters) Create(_ context.Context, _ *entity.Cluster) error { return nil }
func (f *fakeClusters) Get(_ context.Context, _ int64) (*entity.Cluster, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeClusters) GetByCanonicalItemID(_ context.Context, _ int64) (*entity.Cluster, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeClusters) GetByMemberItemID(_ context.Context, rawItemID int64) (*entity.Cluster, error) {
	cid, ok := f.memberOf[rawItemID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &entity.Cluster{ID: cid}, nil
}
func (f *fakeClusters) AddMember(_ context.Context, _ *entity.ClusterMember) error { return nil }
func (f *fakeClusters) ListMembers(_ context.Context, _ int64) ([]*entity.ClusterMember, error) {
	return nil, nil
}
func (f *fakeClusters) CountMembers(_ context.Context, clusterID int64) (int, error) {
	return f.size[clusterID], nil
}
func (f *fakeClusters) ListOpenOlderThan(_ context.Context, _ time.Time) ([]*entity.Cluster, error) {
	return nil, nil
}
func (f *fakeClusters) SetStatus(_ context.Context, _ int64, _ entity.ClusterStatus) error {
	return nil
}
func (f *fakeClusters) Merge(_ context.Context, _, _ int64) error { return nil }

type fakeScores struct {
	rows []*entity.ItemScore
}

func (f *fakeScores) Create(_ context.Context, s *entity.ItemScore) error {
	f.rows = append(f.rows, s)
	return nil
}
func (f *fakeScores) GetLatest(_ context.Context, rawItemID int64) (*entity.ItemScore, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].RawItemID == rawItemID {
			return f.rows[i], nil
		}
	}
	return nil, entity.ErrNotFound
}
func (f *fakeScores) ListCandidates(_ context.Context, _ time.Time, _ float64, _ []string, _ int) ([]*entity.ItemScore, error) {
	return nil, nil
}
func (f *fakeScores) ListSignals(_ context.Context, _ repository.SignalFilter) ([]*repository.SignalView, int64, error) {
	return nil, 0, nil
}
func (f *fakeScores) GetSignal(_ context.Context, _ int64) (*repository.SignalView, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeScores) TopSignals(_ context.Context, _ time.Time, _ int) ([]*repository.SignalView, error) {
	return nil, nil
}
func (f *fakeScores) CategoryStats(_ context.Context, _ time.Time) ([]repository.CategoryStat, error) {
	return nil, nil
}

// stubRelevance returns a fixed relevance score regardless of input.
type stubRelevance struct {
	value  float64
	reason string
}

func (s stubRelevance) Score(_ context.Context, _ *entity.RawItem, _ string, _ *entity.Source) (float64, string, bool) {
	return s.value, s.reason, false
}

func newItem(id, sourceID int64, publishedAgo time.Duration, payload map[string]any) *entity.RawItem {
	published := time.Now().Add(-publishedAgo)
	return &entity.RawItem{
		ID: id, SourceID: sourceID, ExternalID: "ext", Title: "Some story",
		Kind: entity.ItemKindArticle, FetchedAt: time.Now(), ContentHash: "h",
		Status: entity.ItemStatusClustered, PublishedAt: &published, RawPayload: payload,
	}
}

func buildService(t *testing.T, relevance score.RelevanceScorer) (*score.Service, *fakeItems, *fakeClusters, *fakeScores) {
	t.Helper()
	items := &fakeItems{byID: map[int64]*entity.RawItem{}}
	content := &fakeContent{byItem: map[int64]*entity.ExtractedContent{}}
	sources := &fakeSources{byID: map[int64]*entity.Source{1: {ID: 1, Name: "src", Type: entity.SourceTypeHN, CredibilityTier: 4, Enabled: true}}}
	clusters := &fakeClusters{memberOf: map[int64]int64{}, size: map[int64]int{}}
	scores := &fakeScores{}
	svc := score.NewService(items, content, sources, clusters, scores, relevance, nil)
	return svc, items, clusters, scores
}

func TestScorePending_ComputesWeightedSignal(t *testing.T) {
	svc, items, clusters, scores := buildService(t, stubRelevance{value: 0.8})

	item := newItem(1, 1, 12*time.Hour, nil) // novelty band: <24h -> 0.7
	items.byID[item.ID] = item
	clusters.memberOf[item.ID] = 100
	clusters.size[100] = 2 // cross_source = 0.7

	res, err := svc.ScorePending(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Scored != 1 {
		t.Fatalf("want 1 scored, got %d", res.Scored)
	}
	if item.Status != entity.ItemStatusScored {
		t.Fatalf("item status = %q, want scored", item.Status)
	}

	row := scores.rows[0]
	// relevance=0.8, velocity=0.5 (no payload), cross_source=0.7, novelty=0.7
	// signal = 0.32 + 0.10 + 0.14 + 0.14 = 0.70
	want := 0.70
	if diff := row.SignalScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("signal score = %v, want %v", row.SignalScore, want)
	}
	if err := row.Validate(); err != nil {
		t.Fatalf("persisted score row failed its own invariant check: %v", err)
	}
	if res.HighSignal != 1 {
		t.Fatalf("want 1 high-signal item (>= 0.6), got %d", res.HighSignal)
	}
}

func TestScorePending_SpecExampleMath(t *testing.T) {
	// Spec §8 scenario 4: relevance=0.8, velocity=0.5, cross_source=0.7,
	// novelty=0.9 -> signal = 0.32 + 0.10 + 0.14 + 0.18 = 0.74.
	svc, items, clusters, scores := buildService(t, stubRelevance{value: 0.8})

	item := newItem(1, 1, 3*time.Hour, nil) // novelty: <6h -> 0.9
	items.byID[item.ID] = item
	clusters.memberOf[item.ID] = 100
	clusters.size[100] = 2 // cross_source = 0.7

	if _, err := svc.ScorePending(context.Background(), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := scores.rows[0].SignalScore
	if got < 0.739 || got > 0.741 {
		t.Fatalf("signal score = %v, want within [0.739, 0.741]", got)
	}
}

func TestScorePending_VelocityFromHNPayload(t *testing.T) {
	svc, items, clusters, scores := buildService(t, stubRelevance{value: 0})
	item := newItem(1, 1, 100*time.Hour, map[string]any{"hn_id": "123", "score": float64(100)})
	items.byID[item.ID] = item
	clusters.memberOf[item.ID] = 100
	clusters.size[100] = 1

	if _, err := svc.ScorePending(context.Background(), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := scores.rows[0].Velocity; got != 0.5 {
		t.Fatalf("velocity = %v, want min(1, 100/200) = 0.5", got)
	}
}

func TestScorePending_CrossSourceBuckets(t *testing.T) {
	cases := []struct {
		name string
		size int
		want float64
	}{
		{"solo", 1, 0.3},
		{"pair", 2, 0.7},
		{"triple", 3, 1.0},
		{"many", 5, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, items, clusters, scores := buildService(t, stubRelevance{value: 0})
			item := newItem(1, 1, 100*time.Hour, nil)
			items.byID[item.ID] = item
			clusters.memberOf[item.ID] = 100
			clusters.size[100] = tc.size

			if _, err := svc.ScorePending(context.Background(), 10); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := scores.rows[0].CrossSource; got != tc.want {
				t.Fatalf("cross_source = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScorePending_NotClustered_DefaultsLow(t *testing.T) {
	svc, items, _, scores := buildService(t, stubRelevance{value: 0})
	item := newItem(1, 1, 100*time.Hour, nil)
	items.byID[item.ID] = item
	// No cluster membership registered for this item at all.

	if _, err := svc.ScorePending(context.Background(), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := scores.rows[0].CrossSource; got != 0.3 {
		t.Fatalf("cross_source = %v, want 0.3 for an unclustered item", got)
	}
}

func TestScorePending_EmptyBatch(t *testing.T) {
	svc, _, _, _ := buildService(t, stubRelevance{value: 0})
	res, err := svc.ScorePending(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 0 || res.Scored != 0 {
		t.Fatalf("want zero-count result for an empty batch, got %+v", res)
	}
}
