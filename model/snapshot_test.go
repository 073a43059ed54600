package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/dataset"
	"github.com/rushteam/artrec/embedding"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/profile"
	"github.com/rushteam/artrec/rank"
)

// 参与度 100 / 1 / 10 对应评分 3 / 1 / 2（p25≈1.545，p75≈3.507）。
func scenarioDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Interactions: []core.Interaction{
			{UserID: 100, ArticleID: 1, Engagement: 100},
			{UserID: 100, ArticleID: 2, Engagement: 1},
			{UserID: 200, ArticleID: 3, Engagement: 10},
			{UserID: 300, ArticleID: 1, Engagement: math.NaN()},
		},
		Articles: []core.Article{
			{ID: 1, CategoryID: 1, WordsCount: 100},
			{ID: 2, CategoryID: 1, WordsCount: 200},
			{ID: 3, CategoryID: 9, WordsCount: 300},
			{ID: 4, CategoryID: 2, WordsCount: 400},
		},
		Embeddings: embedding.MappingSource{Entries: []core.ArticleVector{
			{ArticleID: 1, Vector: []float64{1, 0}},
			{ArticleID: 2, Vector: []float64{0, 1}},
			{ArticleID: 3, Vector: []float64{1, 1}},
			{ArticleID: 4, Vector: []float64{-1, 0}},
		}},
	}
}

func fit(t *testing.T, ds *dataset.Dataset, opts Options) *Snapshot {
	t.Helper()
	s, err := Fit(context.Background(), ds, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return s
}

func ids(recs []core.Recommendation) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.ArticleID
	}
	return out
}

func TestFit_Recommend(t *testing.T) {
	for _, mode := range []rank.Mode{rank.ModeBatched, rank.ModeLowMemory} {
		t.Run(mode.String(), func(t *testing.T) {
			s := fit(t, scenarioDataset(), Options{Rank: rank.Options{Mode: mode}})

			got := s.Recommend(100, nil, 2)
			if len(got) != 2 || got[0].ArticleID != 3 || got[1].ArticleID != 4 {
				t.Fatalf("Recommend() = %v, want [3 4]", ids(got))
			}
			if math.Abs(got[0].Score-0.894427) > 1e-5 {
				t.Errorf("score = %v, want 0.894", got[0].Score)
			}
			for _, r := range s.Recommend(100, nil, 10) {
				if r.ArticleID == 1 || r.ArticleID == 2 {
					t.Errorf("rated article %d recommended", r.ArticleID)
				}
			}
		})
	}
}

func TestFit_CallerExclude(t *testing.T) {
	s := fit(t, scenarioDataset(), Options{})
	got := s.Recommend(100, map[int64]struct{}{3: {}}, 5)
	if len(got) != 1 || got[0].ArticleID != 4 {
		t.Fatalf("Recommend() = %v, want [4]", ids(got))
	}
	// 调用方的排除集合不应污染历史
	if _, ok := s.History(100)[3]; ok {
		t.Error("history mutated by caller exclude")
	}
}

func TestFit_Roster(t *testing.T) {
	s := fit(t, scenarioDataset(), Options{})

	if !s.HasUser(100) || !s.HasUser(200) {
		t.Error("rated users should be known")
	}
	// 300 只有缺失参与度的行，被丢弃
	if s.HasUser(300) {
		t.Error("user with only dropped interactions should be unknown")
	}
	if got := s.Recommend(999, nil, 5); got == nil || len(got) != 0 {
		t.Errorf("unknown user: got %v, want empty", got)
	}

	users := s.Users()
	if len(users) != 2 || users[0].UserID != 100 || users[1].UserID != 200 {
		t.Fatalf("Users() = %+v", users)
	}
	if users[0].Count != 2 || users[0].AvgRating != 2 {
		t.Errorf("user 100 stats = %+v, want n=2 avg=2", users[0])
	}

	st := s.Stats()
	if st.Users != 2 || st.Ratings != 3 || st.Dropped != 1 || st.Articles != 4 || st.Dimension != 2 {
		t.Errorf("Stats() = %+v", st)
	}

	a, ok := s.Article(3)
	if !ok || a.WordsCount != 300 {
		t.Errorf("Article(3) = %+v, %v", a, ok)
	}
}

func TestFit_ArticleFilter(t *testing.T) {
	f, err := filter.NewExprFilter(`article.category_id != 9`)
	if err != nil {
		t.Fatal(err)
	}
	s := fit(t, scenarioDataset(), Options{Filters: []filter.Filter{f}})

	got := s.Recommend(100, nil, 2)
	if len(got) != 1 || got[0].ArticleID != 4 {
		t.Fatalf("Recommend() = %v, want [4]", ids(got))
	}
	if s.Stats().Ineligible != 1 {
		t.Errorf("Ineligible = %d, want 1", s.Stats().Ineligible)
	}
}

func TestFit_UnindexedPolicy(t *testing.T) {
	withUnindexed := func() *dataset.Dataset {
		ds := scenarioDataset()
		ds.Interactions = append(ds.Interactions, core.Interaction{UserID: 400, ArticleID: 404, Engagement: 5})
		return ds
	}

	s := fit(t, withUnindexed(), Options{})
	if s.Stats().Skipped != 1 || s.Stats().Degenerate != 1 {
		t.Errorf("lenient: Stats() = %+v", s.Stats())
	}
	if !s.HasUser(400) {
		t.Error("user with only unindexed ratings is still a known user")
	}
	if got := s.Recommend(400, nil, 3); len(got) != 0 {
		t.Errorf("degenerate user got %v", ids(got))
	}

	snap, err := Fit(context.Background(), withUnindexed(), Options{Profile: profile.Options{Policy: profile.PolicyStrict}}, zerolog.Nop())
	if err == nil || snap != nil {
		t.Fatalf("strict: Fit() = %v, %v; want error and no snapshot", snap, err)
	}
	if !errors.Is(err, core.ErrUnindexedArticle) || !core.IsDataIntegrity(err) {
		t.Errorf("strict: error = %v, want unindexed data integrity error", err)
	}
}

func TestFit_Failures(t *testing.T) {
	dup := scenarioDataset()
	dup.Embeddings = embedding.MappingSource{Entries: []core.ArticleVector{
		{ArticleID: 1, Vector: []float64{1, 0}},
		{ArticleID: 1, Vector: []float64{0, 1}},
	}}
	noEmb := scenarioDataset()
	noEmb.Embeddings = nil

	tests := []struct {
		name string
		ds   *dataset.Dataset
	}{
		{"nil dataset", nil},
		{"duplicate embedding ids", dup},
		{"missing embeddings", noEmb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Fit(context.Background(), tt.ds, Options{}, zerolog.Nop())
			if err == nil || s != nil {
				t.Fatalf("Fit() = %v, %v; want error and no snapshot", s, err)
			}
		})
	}
}

func TestFit_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if s, err := Fit(ctx, scenarioDataset(), Options{}, zerolog.Nop()); err == nil || s != nil {
		t.Fatalf("Fit() with canceled context = %v, %v", s, err)
	}
}
