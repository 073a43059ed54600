package recall

import (
	"context"
	"strconv"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/utils"
)

// Similarity 是内容召回 Node：用用户画像与文章向量的余弦相似度召回 top-n。
//
// 请求的排除集合（用户已读 + 不可推荐文章）在排序器内部生效，
// 所以返回的候选总是未被排除的文章，且已按分数降序、同分按表顺序排列。
type Similarity struct {
	Recommender pipeline.Recommender

	// Overfetch 额外多召回的数量，给后续过滤节点留余量
	Overfetch int
}

func (n *Similarity) Name() string        { return "recall.similarity" }
func (n *Similarity) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Similarity) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if n.Recommender == nil || rctx == nil || rctx.N <= 0 {
		return []*core.Item{}, nil
	}

	recs := n.Recommender.Recommend(rctx.UserID, rctx.Exclude, rctx.N+n.Overfetch)
	items := make([]*core.Item, len(recs))
	for i, r := range recs {
		it := core.NewItem(r.ArticleID)
		it.Score = r.Score
		it.PutLabel("recall_source", utils.Label{Value: "similarity", Source: "recall"})
		it.PutLabel("recall_rank", utils.Label{Value: strconv.Itoa(i), Source: "recall"})
		items[i] = it
	}
	return items, nil
}
