// Package artrec 是基于内容的文章推荐服务。
//
// 数据流：
//
//	点击日志 → rating.Derive（隐式评分）→ profile.Fit（用户画像）
//	文章向量 → embedding.Build（向量表）→ rank.SimilarityRanker（余弦 top-n）
//
// model.Fit 把一份数据集拟合成只读快照，service 负责懒加载与按请求运行 Pipeline，
// server 暴露 HTTP 接口，cmd/server 是可执行入口。
package artrec

import "github.com/rushteam/artrec/pipeline"

// 轻量 facade：便于直接 import "artrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
