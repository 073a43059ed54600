package rank

import (
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/embedding"
)

// Mode 是候选集的访问方式。两种方式共享打分内核与 top-n 堆，输出完全一致。
type Mode int

const (
	// ModeBatched 按批把候选行拷贝进私有缓冲区再打分（默认）
	ModeBatched Mode = iota
	// ModeLowMemory 逐行打分，不分配批缓冲区
	ModeLowMemory
)

func (m Mode) String() string {
	if m == ModeLowMemory {
		return "low_memory"
	}
	return "batched"
}

// DefaultBatchSize 批模式下每批的候选数量。
const DefaultBatchSize = 1000

type Options struct {
	Mode      Mode
	BatchSize int

	// Ineligible 中的文章对所有用户都不作为候选（加载期的文章过滤结果）
	Ineligible map[int64]struct{}
}

// ProfileSource 提供用户画像查询。
type ProfileSource interface {
	Get(userID int64) (*core.UserProfile, bool)
}

// SimilarityRanker 按画像与文章向量的余弦相似度给候选打分，返回 top-n。
//
// 共享状态只读，每次调用使用私有缓冲区，可并发调用。
type SimilarityRanker struct {
	table    *embedding.Table
	profiles ProfileSource
	opts     Options
	blocked  []bool
}

func NewSimilarityRanker(table *embedding.Table, profiles ProfileSource, opts Options) *SimilarityRanker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	r := &SimilarityRanker{table: table, profiles: profiles, opts: opts}
	if len(opts.Ineligible) > 0 {
		r.blocked = make([]bool, table.Len())
		for id := range opts.Ineligible {
			if i, ok := table.Index(id); ok {
				r.blocked[i] = true
			}
		}
	}
	return r
}

// Options 返回生效的配置。
func (r *SimilarityRanker) Options() Options { return r.opts }

// Recommend 返回用户最相似的 n 篇文章，按分数降序，同分按表顺序升序。
// 未知用户、无法个性化的画像、n <= 0 都返回空切片。
func (r *SimilarityRanker) Recommend(userID int64, exclude map[int64]struct{}, n int) []core.Recommendation {
	if n <= 0 {
		return []core.Recommendation{}
	}
	p, ok := r.profiles.Get(userID)
	if !ok || !p.Personalizable() {
		return []core.Recommendation{}
	}

	top := newTopN(n)
	if r.opts.Mode == ModeLowMemory {
		r.scanLowMemory(p, exclude, top)
	} else {
		r.scanBatched(p, exclude, top)
	}

	ranked := top.sorted()
	out := make([]core.Recommendation, len(ranked))
	for i, c := range ranked {
		out[i] = core.Recommendation{ArticleID: r.table.ID(c.pos), Score: c.score}
	}
	return out
}

// eligible 判断第 i 行能否作为候选：未被排除、未被屏蔽且范数非零。
func (r *SimilarityRanker) eligible(i int, exclude map[int64]struct{}) bool {
	if r.table.Norm(i) == 0 {
		return false
	}
	if r.blocked != nil && r.blocked[i] {
		return false
	}
	if exclude == nil {
		return true
	}
	_, skip := exclude[r.table.ID(i)]
	return !skip
}

func (r *SimilarityRanker) scanBatched(p *core.UserProfile, exclude map[int64]struct{}, top *topN) {
	dim := r.table.Dim()
	total := r.table.Len()
	size := r.opts.BatchSize
	if size > total {
		size = total
	}
	buf := make([]float64, size*dim)
	pos := make([]int, size)

	i := 0
	for i < total {
		k := 0
		for ; i < total && k < size; i++ {
			if !r.eligible(i, exclude) {
				continue
			}
			copy(buf[k*dim:(k+1)*dim], r.table.Row(i))
			pos[k] = i
			k++
		}
		for b := 0; b < k; b++ {
			row := buf[b*dim : (b+1)*dim]
			top.push(candidate{pos: pos[b], score: Cosine(p.Vector, p.Norm(), row, r.table.Norm(pos[b]))})
		}
	}
}

func (r *SimilarityRanker) scanLowMemory(p *core.UserProfile, exclude map[int64]struct{}, top *topN) {
	for i := 0; i < r.table.Len(); i++ {
		if !r.eligible(i, exclude) {
			continue
		}
		top.push(candidate{pos: i, score: Cosine(p.Vector, p.Norm(), r.table.Row(i), r.table.Norm(i))})
	}
}

// Cosine 计算余弦相似度，两侧范数由调用方预先给出，结果截断到 [-1, 1]。
func Cosine(u []float64, unorm float64, v []float64, vnorm float64) float64 {
	var dot float64
	for j := range u {
		dot += u[j] * v[j]
	}
	s := dot / (unorm * vnorm)
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
