package service

import (
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
)

// defaultPipeline 相似度召回 → 元数据 → 截断。
func defaultPipeline(deps pipeline.Deps) *pipeline.Pipeline {
	return &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.Similarity{Recommender: deps.Recommender},
		&feature.MetaEnrich{Articles: deps.Articles},
		&rerank.TopNNode{},
	}}
}
