package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/dataset"
	"github.com/rushteam/artrec/embedding"
	"github.com/rushteam/artrec/model"
)

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Interactions: []core.Interaction{
			{UserID: 100, ArticleID: 1, Engagement: 100},
			{UserID: 100, ArticleID: 2, Engagement: 1},
			{UserID: 200, ArticleID: 3, Engagement: 10},
			{UserID: 300, ArticleID: 404, Engagement: 10},
		},
		Articles: []core.Article{
			{ID: 1, CategoryID: 1, WordsCount: 100},
			{ID: 2, CategoryID: 1, WordsCount: 200},
			{ID: 3, CategoryID: 281, WordsCount: 280},
			{ID: 4, CategoryID: 2, WordsCount: 400},
			{ID: 5, CategoryID: 2, WordsCount: 500},
		},
		Embeddings: embedding.MappingSource{Entries: []core.ArticleVector{
			{ArticleID: 1, Vector: []float64{1, 0}},
			{ArticleID: 2, Vector: []float64{0, 1}},
			{ArticleID: 3, Vector: []float64{1, 1}},
			{ArticleID: 4, Vector: []float64{-1, 0}},
			{ArticleID: 5, Vector: []float64{1, 0.5}},
		}},
	}
}

type countingFit struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingFit) fit(ctx context.Context) (*model.Snapshot, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return nil, errors.New("blob storage unreachable")
	}
	return model.Fit(ctx, testDataset(), model.Options{}, zerolog.Nop())
}

func newService(t *testing.T, cfg Config) (*Service, *countingFit) {
	t.Helper()
	cf := &countingFit{}
	svc, err := New(NewLoader(cf.fit, 0, zerolog.Nop()), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc, cf
}

func TestLoader_LoadOnce(t *testing.T) {
	svc, cf := newService(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Recommend(context.Background(), Request{UserID: 100}); err != nil {
				t.Errorf("Recommend() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if got := cf.calls.Load(); got != 1 {
		t.Errorf("fit called %d times, want 1", got)
	}
}

func TestLoader_FailureThenRetry(t *testing.T) {
	svc, cf := newService(t, Config{})
	cf.fail.Store(true)

	_, err := svc.Recommend(context.Background(), Request{UserID: 100})
	if !core.IsUnavailable(err) {
		t.Fatalf("error = %v, want unavailable", err)
	}
	h := svc.Health()
	if h.DataLoaded || h.LastError == "" {
		t.Errorf("Health() after failure = %+v", h)
	}

	cf.fail.Store(false)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("retry Load() error = %v", err)
	}
	if got := cf.calls.Load(); got != 2 {
		t.Errorf("fit called %d times, want 2", got)
	}
	if h := svc.Health(); !h.DataLoaded || h.LastError != "" {
		t.Errorf("Health() after retry = %+v", h)
	}
}

func TestHealth_DoesNotLoad(t *testing.T) {
	svc, cf := newService(t, Config{})
	h := svc.Health()
	if h.Status != "healthy" || h.DataLoaded || h.TotalUsers != 0 {
		t.Errorf("Health() = %+v", h)
	}
	if cf.calls.Load() != 0 {
		t.Error("Health() triggered a load")
	}

	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	h = svc.Health()
	if !h.DataLoaded || h.TotalUsers != 3 || h.TotalArticles != 5 || h.TotalRatings != 4 {
		t.Errorf("Health() after load = %+v", h)
	}
}

func TestRecommend(t *testing.T) {
	svc, _ := newService(t, Config{DefaultN: 2, MaxN: 3})
	ctx := context.Background()

	tests := []struct {
		name    string
		req     Request
		wantIDs []int64
	}{
		{"default n", Request{UserID: 100}, []int64{5, 3}},
		{"explicit n", Request{UserID: 100, N: IntPtr(1)}, []int64{5}},
		{"zero n", Request{UserID: 100, N: IntPtr(0)}, []int64{}},
		{"capped n", Request{UserID: 100, N: IntPtr(50)}, []int64{5, 3, 4}},
		{"exclude", Request{UserID: 100, N: IntPtr(1), Exclude: []int64{5}}, []int64{3}},
		{"degenerate user", Request{UserID: 300}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Recommend(ctx, tt.req)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if got == nil {
				t.Fatal("Recommend() returned nil, want non-nil slice")
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Recommend() = %+v, want ids %v", got, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ArticleID != id {
					t.Errorf("got[%d] = %d, want %d", i, got[i].ArticleID, id)
				}
			}
		})
	}
}

func TestRecommend_RoundingAndMeta(t *testing.T) {
	svc, _ := newService(t, Config{})
	got, err := svc.Recommend(context.Background(), Request{UserID: 100, N: IntPtr(2), WithMeta: true})
	if err != nil {
		t.Fatal(err)
	}
	// 画像 (0.75, 0.25)：文章 5 (1, 0.5) 相似度 0.98995，文章 3 (1, 1) 相似度 0.894427
	if got[0].Score != 0.9899 || got[1].Score != 0.8944 {
		t.Errorf("scores = %v, %v", got[0].Score, got[1].Score)
	}
	if got[1].CategoryID != "281" || got[1].WordsCount == nil || *got[1].WordsCount != 280 {
		t.Errorf("meta = %+v", got[1])
	}

	plain, err := svc.Recommend(context.Background(), Request{UserID: 100, N: IntPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if plain[0].CategoryID != "" || plain[0].WordsCount != nil {
		t.Errorf("meta returned without with_meta: %+v", plain[0])
	}
}

func TestRecommend_InvalidN(t *testing.T) {
	svc, _ := newService(t, Config{})
	_, err := svc.Recommend(context.Background(), Request{UserID: 100, N: IntPtr(-1)})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
	// 未知用户优先于 n=0
	if _, err := svc.Recommend(context.Background(), Request{UserID: 999, N: IntPtr(0)}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user with n=0: error = %v", err)
	}
}

func TestRecommend_UnknownUser(t *testing.T) {
	svc, _ := newService(t, Config{})
	_, err := svc.Recommend(context.Background(), Request{UserID: 999})
	if !errors.Is(err, ErrUserNotFound) || !core.IsNotFound(err) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUsers(t *testing.T) {
	svc, _ := newService(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name          string
		limit, offset int
		want          []int64
	}{
		{"all", 0, 0, []int64{100, 200, 300}},
		{"limit", 2, 0, []int64{100, 200}},
		{"page", 1, 1, []int64{200}},
		{"offset only", 0, 2, []int64{300}},
		{"past end", 5, 10, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Users(ctx, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("Users() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Users() = %+v, want %v", got, tt.want)
			}
			for i, id := range tt.want {
				if got[i].UserID != id {
					t.Errorf("got[%d] = %d, want %d", i, got[i].UserID, id)
				}
			}
		})
	}

	if _, err := svc.Users(ctx, -1, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative limit error = %v", err)
	}
}

func TestReload_RebindsPipeline(t *testing.T) {
	svc, cf := newService(t, Config{})
	ctx := context.Background()
	if err := svc.Load(ctx); err != nil {
		t.Fatal(err)
	}
	before := svc.loader.Current()
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if svc.loader.Current() == before {
		t.Error("snapshot not replaced")
	}
	if _, err := svc.Recommend(ctx, Request{UserID: 100}); err != nil {
		t.Fatal(err)
	}
	if b := svc.bound.Load(); b == nil || b.snap != svc.loader.Current() {
		t.Error("pipeline not rebound to new snapshot")
	}

	cf.fail.Store(true)
	if err := svc.Reload(ctx); err == nil {
		t.Fatal("expected reload failure")
	}
	if svc.loader.Current() == nil {
		t.Error("failed reload dropped the served snapshot")
	}
}

func TestNew_Validation(t *testing.T) {
	loader := NewLoader(func(context.Context) (*model.Snapshot, error) { return nil, nil }, 0, zerolog.Nop())
	if _, err := New(nil, Config{}, zerolog.Nop()); err == nil {
		t.Error("nil loader accepted")
	}
	if _, err := New(loader, Config{DefaultN: 10, MaxN: 5}, zerolog.Nop()); err == nil {
		t.Error("max n below default accepted")
	}
}
