package rerank

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// TopNNode 是 Top-N 截断节点，放在链路末尾保证结果数量不超过请求的 n。
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Similarity{...},  // 召回（含额外余量）
//	        &filter.ExprNode{...},    // 过滤
//	        &rerank.TopNNode{},       // 截断到 rctx.N
//	    },
//	}
type TopNNode struct {
	// N 固定截断数量；<= 0 时使用 rctx.N
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.N
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
