// Package dataset 负责把原始数据（点击日志、文章元数据、文章向量）读入内存。
//
// 数据可以来自本地目录、HTTP 容器、任意 core.Store（Redis/Badger/内存），
// 点击日志也可以直接从 Postgres 读取。解析结果是规范化的 Dataset，交给 model.Fit 使用。
package dataset

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/embedding"
	"github.com/rushteam/artrec/metrics"
)

// Dataset 是一次加载得到的全部原始数据。
type Dataset struct {
	Interactions []core.Interaction
	Articles     []core.Article
	Embeddings   embedding.Source

	// KnownIDs 是元数据中文章 ID 的顺序，裸矩阵形态的向量按此对齐
	KnownIDs []int64
}

// InteractionSource 提供交互记录，替代点击日志 blob。
type InteractionSource interface {
	Interactions(ctx context.Context) ([]core.Interaction, error)
}

type Config struct {
	ClicksBlob       string
	ArticlesBlob     string
	EmbeddingsBlob   string
	EmbeddingsFormat EmbeddingsFormat
	Columns          ClickColumns

	// LimitUsers > 0 时只保留交互最多的前 N 个用户（内存受限环境）
	LimitUsers int
}

func DefaultConfig() Config {
	return Config{
		ClicksBlob:     "clicks.csv",
		ArticlesBlob:   "articles_metadata.csv",
		EmbeddingsBlob: "articles_embeddings.json",
		Columns:        DefaultClickColumns,
	}
}

// Loader 并发下载并解析三个数据文件。
type Loader struct {
	Blobs        BlobSource
	Interactions InteractionSource // 为 nil 时读取 ClicksBlob
	Config       Config
	Logger       zerolog.Logger
}

// Load 加载数据集。任一文件失败则整体失败。
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	format := l.Config.EmbeddingsFormat
	if format == FormatAuto {
		f, err := DetectFormat(l.Config.EmbeddingsBlob)
		if err != nil {
			return nil, err
		}
		format = f
	}

	var ds Dataset
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		start := time.Now()
		var err error
		if l.Interactions != nil {
			ds.Interactions, err = l.Interactions.Interactions(egCtx)
		} else {
			err = l.readBlob(egCtx, l.Config.ClicksBlob, func(r io.Reader) error {
				var derr error
				ds.Interactions, derr = DecodeClicks(r, l.Config.Columns)
				return derr
			})
		}
		if err != nil {
			return fmt.Errorf("load interactions: %w", err)
		}
		l.Logger.Info().Int("rows", len(ds.Interactions)).Dur("took", time.Since(start)).Msg("interactions loaded")
		return nil
	})

	eg.Go(func() error {
		start := time.Now()
		err := l.readBlob(egCtx, l.Config.ArticlesBlob, func(r io.Reader) error {
			var derr error
			ds.Articles, derr = DecodeArticles(r)
			return derr
		})
		if err != nil {
			return fmt.Errorf("load articles: %w", err)
		}
		l.Logger.Info().Int("rows", len(ds.Articles)).Dur("took", time.Since(start)).Msg("articles metadata loaded")
		return nil
	})

	eg.Go(func() error {
		start := time.Now()
		err := l.readBlob(egCtx, l.Config.EmbeddingsBlob, func(r io.Reader) error {
			var derr error
			ds.Embeddings, derr = DecodeEmbeddings(r, format)
			return derr
		})
		if err != nil {
			return fmt.Errorf("load embeddings: %w", err)
		}
		l.Logger.Info().Str("shape", embedding.Kind(ds.Embeddings)).Str("format", string(format)).
			Dur("took", time.Since(start)).Msg("embeddings loaded")
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ds.KnownIDs = make([]int64, len(ds.Articles))
	for i, a := range ds.Articles {
		ds.KnownIDs[i] = a.ID
	}

	if l.Config.LimitUsers > 0 {
		before := len(ds.Interactions)
		var kept int
		ds.Interactions, kept = LimitUsers(ds.Interactions, l.Config.LimitUsers)
		l.Logger.Warn().Int("users", kept).Int("rows_before", before).Int("rows_after", len(ds.Interactions)).
			Msg("limited to most active users")
	}
	return &ds, nil
}

func (l *Loader) readBlob(ctx context.Context, name string, decode func(io.Reader) error) error {
	rc, err := l.Blobs.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	cr := &countingReader{r: rc}
	if err := decode(cr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	metrics.BlobBytes.WithLabelValues(name).Add(float64(cr.n))
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// LimitUsers 只保留交互条数最多的 n 个用户（同数按用户 ID 升序），返回过滤后的记录与保留用户数。
// 记录的相对顺序不变。
func LimitUsers(interactions []core.Interaction, n int) ([]core.Interaction, int) {
	counts := make(map[int64]int)
	for _, in := range interactions {
		counts[in.UserID]++
	}
	if n <= 0 || len(counts) <= n {
		return interactions, len(counts)
	}

	users := make([]int64, 0, len(counts))
	for uid := range counts {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool {
		ci, cj := counts[users[i]], counts[users[j]]
		if ci != cj {
			return ci > cj
		}
		return users[i] < users[j]
	})

	keep := make(map[int64]struct{}, n)
	for _, uid := range users[:n] {
		keep[uid] = struct{}{}
	}
	out := make([]core.Interaction, 0, len(interactions))
	for _, in := range interactions {
		if _, ok := keep[in.UserID]; ok {
			out = append(out, in)
		}
	}
	return out, n
}
