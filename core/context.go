package core

import "github.com/rushteam/artrec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户与参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID int64

	// N 期望返回的推荐数量
	N int

	// WithMeta 为 true 时在结果中附带文章元数据（类别、字数）
	WithMeta bool

	// Exclude 是不允许出现在结果中的文章集合（通常是用户已交互过的文章）
	Exclude map[int64]struct{}

	// Labels 是请求级标签，可驱动 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// Excluded 判断文章是否在排除集合中。
func (rctx *RecommendContext) Excluded(articleID int64) bool {
	if rctx == nil || rctx.Exclude == nil {
		return false
	}
	_, ok := rctx.Exclude[articleID]
	return ok
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
