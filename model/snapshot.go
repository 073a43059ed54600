// Package model 把数据集拟合成可服务的只读快照。
//
// 快照一经构建不再修改，推荐调用之间不需要加锁；重新加载时整体替换。
package model

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/dataset"
	"github.com/rushteam/artrec/embedding"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/profile"
	"github.com/rushteam/artrec/rank"
	"github.com/rushteam/artrec/rating"
)

type Options struct {
	Profile profile.Options
	Rank    rank.Options

	// Filters 在加载时对全部文章求值，命中的文章对所有用户不可推荐
	Filters []filter.Filter
}

// Stats 是快照的规模统计，用于健康检查与日志。
type Stats struct {
	Users            int       `json:"total_users"`
	Articles         int       `json:"total_articles"`
	Ratings          int       `json:"total_ratings"`
	EmbeddedArticles int       `json:"embedded_articles"`
	Dimension        int       `json:"embedding_dim"`
	Dropped          int       `json:"dropped_interactions"`
	Skipped          int       `json:"skipped_ratings"`
	Degenerate       int       `json:"degenerate_users"`
	Ineligible       int       `json:"ineligible_articles"`
	P25              float64   `json:"p25"`
	P75              float64   `json:"p75"`
	Mode             string    `json:"mode"`
	FittedAt         time.Time `json:"fitted_at"`
}

// Snapshot 是一次完整拟合的结果。
type Snapshot struct {
	table    *embedding.Table
	profiles *profile.Set
	ranker   *rank.SimilarityRanker

	history  map[int64]map[int64]struct{}
	articles map[int64]core.Article
	roster   []core.UserStat
	stats    Stats
}

// Fit 依次构建向量表、评分、画像、用户统计与排序器。任一步失败都不返回快照。
func Fit(ctx context.Context, ds *dataset.Dataset, opts Options, logger zerolog.Logger) (*Snapshot, error) {
	if ds == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "model: nil dataset")
	}

	table, err := embedding.Build(ds.Embeddings, ds.KnownIDs)
	if err != nil {
		return nil, fmt.Errorf("build embedding table: %w", err)
	}
	logger.Info().Int("articles", table.Len()).Int("dim", table.Dim()).Msg("embedding table built")

	derived := rating.Derive(ds.Interactions)
	logger.Info().
		Int("ratings", len(derived.Ratings)).
		Int("dropped", derived.Dropped).
		Float64("p25", derived.P25).
		Float64("p75", derived.P75).
		Msg("implicit ratings derived")

	profiles, err := profile.Fit(derived.Ratings, table, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("fit profiles: %w", err)
	}
	if profiles.Skipped() > 0 {
		logger.Warn().Int("skipped", profiles.Skipped()).Msg("ratings reference articles without embeddings")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ineligible, err := filter.Ineligible(ctx, ds.Articles, opts.Filters...)
	if err != nil {
		return nil, fmt.Errorf("article filters: %w", err)
	}

	rankOpts := opts.Rank
	rankOpts.Ineligible = ineligible
	ranker := rank.NewSimilarityRanker(table, profiles, rankOpts)

	articles := make(map[int64]core.Article, len(ds.Articles))
	for _, a := range ds.Articles {
		articles[a.ID] = a
	}

	s := &Snapshot{
		table:    table,
		profiles: profiles,
		ranker:   ranker,
		history:  history(derived.Ratings),
		articles: articles,
		roster:   rating.UserStats(derived.Ratings),
	}
	s.stats = Stats{
		Users:            len(s.roster),
		Articles:         len(ds.Articles),
		Ratings:          len(derived.Ratings),
		EmbeddedArticles: table.Len(),
		Dimension:        table.Dim(),
		Dropped:          derived.Dropped,
		Skipped:          profiles.Skipped(),
		Degenerate:       profiles.Degenerate(),
		Ineligible:       len(ineligible),
		P25:              derived.P25,
		P75:              derived.P75,
		Mode:             ranker.Options().Mode.String(),
		FittedAt:         time.Now(),
	}
	s.record()

	logger.Info().
		Int("users", s.stats.Users).
		Int("degenerate", s.stats.Degenerate).
		Int("ineligible", s.stats.Ineligible).
		Str("mode", s.stats.Mode).
		Msg("model fitted")
	return s, nil
}

func history(ratings []core.Rating) map[int64]map[int64]struct{} {
	out := make(map[int64]map[int64]struct{})
	for _, r := range ratings {
		seen, ok := out[r.UserID]
		if !ok {
			seen = make(map[int64]struct{})
			out[r.UserID] = seen
		}
		seen[r.ArticleID] = struct{}{}
	}
	return out
}

func (s *Snapshot) record() {
	metrics.ModelEntities.WithLabelValues("users").Set(float64(s.stats.Users))
	metrics.ModelEntities.WithLabelValues("articles").Set(float64(s.stats.EmbeddedArticles))
	metrics.ModelEntities.WithLabelValues("ratings").Set(float64(s.stats.Ratings))
	metrics.ModelEntities.WithLabelValues("degenerate_users").Set(float64(s.stats.Degenerate))
	metrics.EmbeddingDimension.Set(float64(s.stats.Dimension))
	metrics.InteractionsDropped.Add(float64(s.stats.Dropped))
	metrics.RatingsSkipped.Add(float64(s.stats.Skipped))
}

// Recommend 返回用户的 top-n 推荐，自动排除用户已评分的文章与不可推荐文章。
// exclude 为调用方额外排除的文章，可以为 nil。
func (s *Snapshot) Recommend(userID int64, exclude map[int64]struct{}, n int) []core.Recommendation {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.WithLabelValues(s.stats.Mode).Observe(time.Since(start).Seconds())
	}()

	seen := s.history[userID]
	if len(exclude) > 0 {
		merged := make(map[int64]struct{}, len(seen)+len(exclude))
		for id := range seen {
			merged[id] = struct{}{}
		}
		for id := range exclude {
			merged[id] = struct{}{}
		}
		seen = merged
	}
	return s.ranker.Recommend(userID, seen, n)
}

// HasUser 用户是否至少有一条评分。
func (s *Snapshot) HasUser(userID int64) bool {
	_, ok := s.history[userID]
	return ok
}

// History 返回用户评分过的文章集合（只读）。
func (s *Snapshot) History(userID int64) map[int64]struct{} {
	return s.history[userID]
}

// Users 返回按 user_id 升序的用户统计（只读）。
func (s *Snapshot) Users() []core.UserStat { return s.roster }

func (s *Snapshot) Article(id int64) (core.Article, bool) {
	a, ok := s.articles[id]
	return a, ok
}

// Profile 返回用户画像。
func (s *Snapshot) Profile(userID int64) (*core.UserProfile, bool) {
	return s.profiles.Get(userID)
}

func (s *Snapshot) Table() *embedding.Table { return s.table }

func (s *Snapshot) Stats() Stats { return s.stats }
