// Package service 是推荐服务的应用层：懒加载模型快照，按请求运行推荐流水线。
package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/model"
	"github.com/rushteam/artrec/pipeline"
)

var (
	// ErrUserNotFound 用户没有任何评分记录。
	ErrUserNotFound = core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound, "user not found")

	// ErrInvalidArgument 请求参数非法。
	ErrInvalidArgument = core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "invalid argument")
)

type Config struct {
	DefaultN int
	MaxN     int

	// Pipeline 为 nil 时只运行相似度排序
	Pipeline *pipeline.Config
	Factory  *pipeline.NodeFactory
}

type Request struct {
	UserID int64
	// N 为 nil 时使用默认值；0 返回空列表；超过上限时截断到上限
	N        *int
	WithMeta bool
	// Exclude 本次请求额外排除的文章
	Exclude []int64
}

// Result 是一条对外返回的推荐。
type Result struct {
	ArticleID  int64   `json:"article_id"`
	Score      float64 `json:"score"`
	CategoryID string  `json:"category_id,omitempty"`
	WordsCount *int64  `json:"words_count,omitempty"`
}

// Health 是健康检查结果，检查本身不会触发加载。
type Health struct {
	Status        string       `json:"status"`
	DataLoaded    bool         `json:"data_loaded"`
	TotalUsers    int          `json:"total_users"`
	TotalArticles int          `json:"total_articles"`
	TotalRatings  int          `json:"total_ratings"`
	LastError     string       `json:"last_error,omitempty"`
	Model         *model.Stats `json:"model,omitempty"`
}

type Service struct {
	loader *Loader
	cfg    Config
	logger zerolog.Logger

	// 与快照绑定的流水线，快照替换后重新构建
	bound atomic.Pointer[boundPipeline]
}

type boundPipeline struct {
	snap *model.Snapshot
	pipe *pipeline.Pipeline
}

func New(loader *Loader, cfg Config, logger zerolog.Logger) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("service: loader is required")
	}
	if cfg.DefaultN <= 0 {
		cfg.DefaultN = 5
	}
	if cfg.MaxN <= 0 {
		cfg.MaxN = 100
	}
	if cfg.MaxN < cfg.DefaultN {
		return nil, fmt.Errorf("service: max n %d < default n %d", cfg.MaxN, cfg.DefaultN)
	}
	if cfg.Pipeline != nil && cfg.Factory == nil {
		return nil, fmt.Errorf("service: pipeline config requires a node factory")
	}
	return &Service{loader: loader, cfg: cfg, logger: logger}, nil
}

// Load 确保模型已加载。
func (s *Service) Load(ctx context.Context) error {
	_, err := s.snapshot(ctx)
	return err
}

// Reload 重新拟合并替换模型。
func (s *Service) Reload(ctx context.Context) error {
	if err := s.loader.Reload(ctx); err != nil {
		return core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "model reload failed", err)
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context) (*model.Snapshot, error) {
	snap, err := s.loader.Get(ctx)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "model unavailable", err)
	}
	return snap, nil
}

// Recommend 为用户返回推荐结果，分数保留 4 位小数。
// 用户没有评分记录时返回 ErrUserNotFound；有记录但无法个性化时返回空列表。
func (s *Service) Recommend(ctx context.Context, req Request) ([]Result, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.HasUser(req.UserID) {
		metrics.RecommendResults.WithLabelValues("unknown_user").Inc()
		return nil, fmt.Errorf("user %d: %w", req.UserID, ErrUserNotFound)
	}

	n := s.cfg.DefaultN
	if req.N != nil {
		n = *req.N
	}
	switch {
	case n < 0:
		return nil, fmt.Errorf("n=%d: %w", n, ErrInvalidArgument)
	case n == 0:
		metrics.RecommendResults.WithLabelValues("empty").Inc()
		return []Result{}, nil
	case n > s.cfg.MaxN:
		n = s.cfg.MaxN
	}

	rctx := &core.RecommendContext{UserID: req.UserID, N: n, WithMeta: req.WithMeta}
	if len(req.Exclude) > 0 {
		rctx.Exclude = make(map[int64]struct{}, len(req.Exclude))
		for _, id := range req.Exclude {
			rctx.Exclude[id] = struct{}{}
		}
	}

	pipe, err := s.pipelineFor(snap)
	if err != nil {
		return nil, err
	}
	items, err := pipe.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(items))
	for _, it := range items {
		out = append(out, toResult(it))
	}
	if len(out) == 0 {
		metrics.RecommendResults.WithLabelValues("empty").Inc()
	} else {
		metrics.RecommendResults.WithLabelValues("ok").Inc()
	}
	s.logger.Debug().Int64("user_id", req.UserID).Int("n", n).Int("returned", len(out)).Msg("recommend")
	return out, nil
}

func (s *Service) pipelineFor(snap *model.Snapshot) (*pipeline.Pipeline, error) {
	if b := s.bound.Load(); b != nil && b.snap == snap {
		return b.pipe, nil
	}
	deps := pipeline.Deps{Recommender: snap, Articles: snap}
	var pipe *pipeline.Pipeline
	if s.cfg.Pipeline == nil {
		pipe = defaultPipeline(deps)
	} else {
		p, err := s.cfg.Pipeline.BuildPipeline(s.cfg.Factory, deps)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		pipe = p
	}
	s.bound.Store(&boundPipeline{snap: snap, pipe: pipe})
	s.logger.Info().Strs("nodes", pipe.Names()).Msg("pipeline bound to snapshot")
	return pipe, nil
}

func toResult(it *core.Item) Result {
	r := Result{ArticleID: it.ID, Score: round4(it.Score)}
	if v, ok := it.Meta["category_id"].(int64); ok {
		r.CategoryID = strconv.FormatInt(v, 10)
	}
	if v, ok := it.Meta["words_count"].(int64); ok {
		r.WordsCount = &v
	}
	return r
}

// IntPtr 便于构造 Request.N。
func IntPtr(v int) *int { return &v }

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// Users 返回按 user_id 升序的用户统计。limit <= 0 表示不限。
func (s *Service) Users(ctx context.Context, limit, offset int) ([]core.UserStat, error) {
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("limit=%d offset=%d: %w", limit, offset, ErrInvalidArgument)
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	users := snap.Users()
	if offset >= len(users) {
		return []core.UserStat{}, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

// Health 报告当前状态，不触发加载。
func (s *Service) Health() Health {
	h := Health{Status: "healthy"}
	if err := s.loader.LastError(); err != nil {
		h.LastError = err.Error()
	}
	snap := s.loader.Current()
	if snap == nil {
		return h
	}
	st := snap.Stats()
	h.DataLoaded = true
	h.TotalUsers = st.Users
	h.TotalArticles = st.Articles
	h.TotalRatings = st.Ratings
	h.Model = &st
	return h
}
