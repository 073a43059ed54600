package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/artrec/core"
)

type appendNode struct {
	id  int64
	err error
}

func (n *appendNode) Name() string { return "test.append" }
func (n *appendNode) Kind() Kind   { return KindRecall }
func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(n.id)), nil
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Nodes: []Node{&appendNode{id: 1}, &appendNode{id: 2}}}
	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 2 {
		t.Errorf("items = %v", items)
	}

	boom := errors.New("boom")
	p = &Pipeline{Nodes: []Node{&appendNode{id: 1}, &appendNode{err: boom}}}
	if _, err := p.Run(context.Background(), &core.RecommendContext{}, nil); !errors.Is(err, boom) {
		t.Errorf("Run() err = %v, want wrapped boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, &core.RecommendContext{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() with canceled ctx err = %v", err)
	}
}

const testYAML = `
pipeline:
  name: content_based
  nodes:
    - type: test.append
      config:
        id: 7
    - type: test.append
      config:
        id: 8
`

func testFactory() *NodeFactory {
	f := NewNodeFactory()
	f.Register("test.append", func(cfg map[string]any, _ Deps) (Node, error) {
		id, _ := cfg["id"].(int)
		return &appendNode{id: int64(id)}, nil
	})
	return f
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if cfg.Pipeline.Name != "content_based" || len(cfg.Pipeline.Nodes) != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}

	p, err := cfg.BuildPipeline(testFactory(), Deps{})
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != 7 || items[1].ID != 8 {
		t.Errorf("items = %v", items)
	}
	if names := p.Names(); len(names) != 2 || names[0] != "test.append" {
		t.Errorf("Names() = %v", names)
	}
}

func TestParseYAML_Errors(t *testing.T) {
	if _, err := ParseYAML([]byte("pipeline: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ParseYAML([]byte("pipeline:\n  name: empty\n")); err == nil {
		t.Error("expected error for pipeline without nodes")
	}

	cfg, err := ParseYAML([]byte("pipeline:\n  nodes:\n    - type: nope\n"))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if _, err := cfg.BuildPipeline(testFactory(), Deps{}); err == nil {
		t.Error("expected unknown node type error")
	}
}
