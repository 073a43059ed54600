package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/artrec/dataset"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/model"
)

// FitFunc 完整地加载数据并拟合一个快照。
type FitFunc func(ctx context.Context) (*model.Snapshot, error)

// DatasetFit 组合数据集加载与模型拟合。
// filters 在每次拟合前调用一次，返回附加的文章过滤器（例如从 store 读取的黑名单），可以为 nil。
func DatasetFit(dl *dataset.Loader, opts model.Options, filters func(ctx context.Context) ([]filter.Filter, error), logger zerolog.Logger) FitFunc {
	return func(ctx context.Context) (*model.Snapshot, error) {
		ds, err := dl.Load(ctx)
		if err != nil {
			return nil, err
		}
		o := opts
		if filters != nil {
			extra, err := filters(ctx)
			if err != nil {
				return nil, err
			}
			o.Filters = append(append([]filter.Filter{}, opts.Filters...), extra...)
		}
		return model.Fit(ctx, ds, o, logger)
	}
}

// Loader 保证快照最多被成功加载一次：并发调用共享同一次加载，
// 失败不发布任何快照，下次调用重新尝试。
type Loader struct {
	fit     FitFunc
	timeout time.Duration
	logger  zerolog.Logger

	group   singleflight.Group
	current atomic.Pointer[model.Snapshot]
	lastErr atomic.Pointer[loadError]
}

type loadError struct {
	err error
	at  time.Time
}

// NewLoader 创建加载器；timeout > 0 时限制单次加载耗时。
func NewLoader(fit FitFunc, timeout time.Duration, logger zerolog.Logger) *Loader {
	return &Loader{fit: fit, timeout: timeout, logger: logger}
}

// Get 返回当前快照，尚未加载时触发加载并等待。
func (l *Loader) Get(ctx context.Context) (*model.Snapshot, error) {
	if s := l.current.Load(); s != nil {
		return s, nil
	}
	ch := l.group.DoChan("load", func() (any, error) {
		if s := l.current.Load(); s != nil {
			return s, nil
		}
		return l.load(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Snapshot), nil
	}
}

// Reload 无条件重新拟合，成功后原子替换当前快照；失败时保留旧快照。
func (l *Loader) Reload(ctx context.Context) error {
	_, err, _ := l.group.Do("reload", func() (any, error) {
		return l.load(ctx)
	})
	return err
}

func (l *Loader) load(ctx context.Context) (*model.Snapshot, error) {
	// 加载由首个调用方触发，但结果被所有等待方共享，不跟随单个请求取消
	ctx = context.WithoutCancel(ctx)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	l.logger.Info().Msg("loading model")
	s, err := l.fit(ctx)
	d := time.Since(start)
	metrics.RecordModelLoad(d, err)
	if err != nil {
		l.lastErr.Store(&loadError{err: err, at: time.Now()})
		l.logger.Error().Err(err).Dur("duration", d).Msg("model load failed")
		return nil, err
	}
	l.current.Store(s)
	l.lastErr.Store(nil)
	l.logger.Info().Dur("duration", d).Msg("model loaded")
	return s, nil
}

// Current 返回已发布的快照，不触发加载。
func (l *Loader) Current() *model.Snapshot {
	return l.current.Load()
}

// LastError 返回最近一次失败的加载错误；之后若加载成功则为 nil。
func (l *Loader) LastError() error {
	if e := l.lastErr.Load(); e != nil {
		return e.err
	}
	return nil
}
