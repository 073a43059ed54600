package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/artrec/core"
)

func TestTopNNode(t *testing.T) {
	items := func() []*core.Item {
		return []*core.Item{core.NewItem(1), core.NewItem(2), core.NewItem(3)}
	}
	tests := []struct {
		name string
		node *TopNNode
		rctN int
		want int
	}{
		{"request n", &TopNNode{}, 2, 2},
		{"fixed n", &TopNNode{N: 1}, 5, 1},
		{"fewer items than n", &TopNNode{}, 10, 3},
		{"no limit", &TopNNode{}, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.node.Process(context.Background(), &core.RecommendContext{N: tt.rctN}, items())
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(out) != tt.want {
				t.Errorf("len = %d, want %d", len(out), tt.want)
			}
			if len(out) > 0 && out[0].ID != 1 {
				t.Errorf("order changed: first = %d", out[0].ID)
			}
		})
	}
}
