package pipeline

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：由排序器生成候选
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选
	KindReRank      Kind = "rerank"      // 重排阶段：截断/调整最终顺序
	KindPostProcess Kind = "postprocess" // 后处理阶段：补充元数据
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// Recommender 为用户产出按相似度排序的候选（由模型快照提供）。
type Recommender interface {
	Recommend(userID int64, exclude map[int64]struct{}, n int) []core.Recommendation
}

// ArticleLookup 按 ID 查文章元数据（由模型快照提供）。
type ArticleLookup interface {
	Article(id int64) (core.Article, bool)
}

// Deps 是构建 Node 时可用的运行期依赖，随模型快照一起替换。
type Deps struct {
	Recommender Recommender
	Articles    ArticleLookup
}
