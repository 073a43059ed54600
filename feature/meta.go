package feature

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// MetaEnrich 在请求要求时（rctx.WithMeta）为结果补充文章元数据：category_id、words_count。
// 元数据只用于展示，不影响分数与顺序。
type MetaEnrich struct {
	Articles pipeline.ArticleLookup

	// Always 为 true 时无论请求是否要求都补充
	Always bool
}

func (n *MetaEnrich) Name() string        { return "feature.meta" }
func (n *MetaEnrich) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *MetaEnrich) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Articles == nil || (!n.Always && (rctx == nil || !rctx.WithMeta)) {
		return items, nil
	}
	for _, it := range items {
		a, ok := n.Articles.Article(it.ID)
		if !ok {
			continue
		}
		it.PutMeta("category_id", a.CategoryID)
		it.PutMeta("words_count", a.WordsCount)
	}
	return items, nil
}
