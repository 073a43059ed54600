package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/dsl"
	"github.com/rushteam/artrec/pkg/utils"
)

// ExprNode 是请求期过滤 Node：表达式可读取 item 与 rctx，为 false 的结果被移除。
// 与加载期的文章过滤不同，它在排序之后执行，通常配合 recall.Similarity 的 Overfetch 使用。
//
//	item.score > 0.2
//	!(item.id in rctx.params.hidden)
type ExprNode struct {
	prg *dsl.Program
}

func NewExprNode(expr string) (*ExprNode, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprNode{prg: prg}, nil
}

func (n *ExprNode) Name() string        { return "filter.expr" }
func (n *ExprNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *ExprNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	rvars := dsl.ContextVars(rctx)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		keep, err := n.prg.Eval(map[string]any{"item": dsl.ItemVars(it), "rctx": rvars})
		if err != nil {
			return nil, err
		}
		if !keep {
			it.PutLabel("filtered", utils.Label{Value: "true", Source: n.Name()})
			continue
		}
		out = append(out, it)
	}
	return out, nil
}
