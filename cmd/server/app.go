package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/config/builders"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/dataset"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/logging"
	"github.com/rushteam/artrec/model"
	"github.com/rushteam/artrec/profile"
	"github.com/rushteam/artrec/rank"
	"github.com/rushteam/artrec/service"
	"github.com/rushteam/artrec/store"
)

type app struct {
	service *service.Service
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logging.Warn().Err(err).Msg("close failed")
		}
	}
}

// build 按配置组装 存储 → 数据集 → 模型 → 服务。
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	blobs, kv, err := openBlobs(cfg.Storage, a)
	if err != nil {
		return fail(err)
	}

	dsCfg := dataset.Config{
		ClicksBlob:       cfg.Dataset.ClicksBlob,
		ArticlesBlob:     cfg.Dataset.ArticlesBlob,
		EmbeddingsBlob:   cfg.Dataset.EmbeddingsBlob,
		EmbeddingsFormat: dataset.EmbeddingsFormat(cfg.Dataset.EmbeddingsFormat),
		Columns:          clickColumns(cfg.Dataset),
		LimitUsers:       cfg.Dataset.EffectiveLimitUsers(),
	}
	loader := &dataset.Loader{Blobs: blobs, Config: dsCfg, Logger: logging.Component("dataset")}
	if cfg.Dataset.InteractionsDSN != "" {
		pg, err := dataset.NewPostgresInteractions(ctx, cfg.Dataset.InteractionsDSN, cfg.Dataset.InteractionsQuery)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, pg)
		loader.Interactions = pg
	}

	opts, err := modelOptions(cfg.Recommend)
	if err != nil {
		return fail(err)
	}
	blacklist := func(ctx context.Context) ([]filter.Filter, error) {
		bl, err := filter.LoadBlacklist(ctx, kv, cfg.Recommend.BlacklistKey, cfg.Recommend.Blacklist...)
		if err != nil {
			return nil, err
		}
		if bl.Len() == 0 {
			return nil, nil
		}
		return []filter.Filter{bl}, nil
	}
	fit := service.DatasetFit(loader, opts, blacklist, logging.Component("model"))

	pipeCfg, err := builders.Load(cfg.Recommend.PipelineFile)
	if err != nil {
		return fail(fmt.Errorf("pipeline: %w", err))
	}
	svc, err := service.New(
		service.NewLoader(fit, cfg.Recommend.LoadTimeout, logging.Component("loader")),
		service.Config{
			DefaultN: cfg.Recommend.DefaultN,
			MaxN:     cfg.Recommend.MaxN,
			Pipeline: pipeCfg,
			Factory:  config.DefaultFactory(),
		},
		logging.Component("service"),
	)
	if err != nil {
		return fail(err)
	}
	a.service = svc
	return a, nil
}

// openBlobs 返回数据集 blob 来源，以及可用于黑名单等小对象的 KV 存储（可能为 nil）。
func openBlobs(cfg config.StorageConfig, a *app) (dataset.BlobSource, core.Store, error) {
	var origin dataset.BlobSource

	switch cfg.Backend {
	case "dir":
		origin = dataset.DirSource{Dir: cfg.Dir}
	case "http":
		origin = dataset.NewHTTPSource(cfg.BaseURL, cfg.Container, cfg.Query, cfg.HTTPTimeout)
	default:
		s, err := store.Open(store.Config{
			Backend:    cfg.Backend,
			RedisAddr:  cfg.RedisAddr,
			RedisDB:    cfg.RedisDB,
			BadgerPath: cfg.BadgerPath,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s)
		return dataset.StoreSource{Store: s, Prefix: cfg.Prefix}, s, nil
	}

	if cfg.Cache == "" {
		return origin, nil, nil
	}
	cache, err := store.Open(store.Config{
		Backend:    cfg.Cache,
		RedisAddr:  cfg.RedisAddr,
		RedisDB:    cfg.RedisDB,
		BadgerPath: cfg.BadgerPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("blob cache: %w", err)
	}
	a.closers = append(a.closers, cache)
	return &dataset.CachedSource{
		Origin: origin,
		Cache:  cache,
		Prefix: cfg.Prefix,
		TTL:    int(cfg.CacheTTL.Seconds()),
		Logger: logging.Component("blob_cache"),
	}, cache, nil
}

func clickColumns(d config.DatasetConfig) dataset.ClickColumns {
	cols := dataset.DefaultClickColumns
	if d.UserColumn != "" {
		cols.User = d.UserColumn
	}
	if d.ArticleColumn != "" {
		cols.Article = d.ArticleColumn
	}
	if d.EngagementColumn != "" {
		cols.Engagement = d.EngagementColumn
	}
	return cols
}

func modelOptions(r config.RecommendConfig) (model.Options, error) {
	policy, err := profile.ParsePolicy(r.UnindexedPolicy)
	if err != nil {
		return model.Options{}, err
	}
	opts := model.Options{
		Profile: profile.Options{Policy: policy},
		Rank:    rank.Options{Mode: rank.ModeBatched, BatchSize: r.BatchSize},
	}
	if r.LowMemory {
		opts.Rank.Mode = rank.ModeLowMemory
	}
	if r.ArticleFilter != "" {
		f, err := filter.NewExprFilter(r.ArticleFilter)
		if err != nil {
			return model.Options{}, fmt.Errorf("article filter: %w", err)
		}
		opts.Filters = append(opts.Filters, f)
	}
	return opts, nil
}
