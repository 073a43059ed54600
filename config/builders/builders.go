package builders

import (
	"fmt"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/conv"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
)

func init() {
	config.Register("recall.similarity", BuildSimilarityNode)
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("feature.meta", BuildMetaNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildSimilarityNode(cfg map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Recommender == nil {
		return nil, fmt.Errorf("recall.similarity: recommender is required")
	}
	overfetch := conv.ConfigGetInt64(cfg, "overfetch", 0)
	if overfetch < 0 {
		return nil, fmt.Errorf("recall.similarity: overfetch must be >= 0, got %d", overfetch)
	}
	return &recall.Similarity{Recommender: deps.Recommender, Overfetch: int(overfetch)}, nil
}

func BuildExprFilterNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("filter.expr: expr is required")
	}
	return filter.NewExprNode(expr)
}

func BuildMetaNode(cfg map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Articles == nil {
		return nil, fmt.Errorf("feature.meta: article lookup is required")
	}
	return &feature.MetaEnrich{Articles: deps.Articles, Always: conv.ConfigGet(cfg, "always", false)}, nil
}

func BuildTopNNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

// DefaultConfig 是未提供 pipeline 文件时使用的流水线：相似度召回 → 元数据 → 截断。
func DefaultConfig() *pipeline.Config {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = "content_based"
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{
		{Type: "recall.similarity"},
		{Type: "feature.meta"},
		{Type: "rerank.topn"},
	}
	return cfg
}

// Load 读取 pipeline 文件（path 为空时返回 DefaultConfig）并校验 node 类型。
func Load(path string) (*pipeline.Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return nil, err
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
