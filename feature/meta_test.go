package feature

import (
	"context"
	"testing"

	"github.com/rushteam/artrec/core"
)

type articleMap map[int64]core.Article

func (m articleMap) Article(id int64) (core.Article, bool) {
	a, ok := m[id]
	return a, ok
}

func TestMetaEnrich(t *testing.T) {
	lookup := articleMap{1: {ID: 1, CategoryID: 281, WordsCount: 200}}

	tests := []struct {
		name     string
		node     *MetaEnrich
		withMeta bool
		wantMeta bool
	}{
		{"requested", &MetaEnrich{Articles: lookup}, true, true},
		{"not requested", &MetaEnrich{Articles: lookup}, false, false},
		{"always", &MetaEnrich{Articles: lookup, Always: true}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []*core.Item{core.NewItem(1), core.NewItem(2)}
			out, err := tt.node.Process(context.Background(), &core.RecommendContext{WithMeta: tt.withMeta}, items)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			_, has := out[0].Meta["category_id"]
			if has != tt.wantMeta {
				t.Errorf("category_id present = %v, want %v", has, tt.wantMeta)
			}
			if tt.wantMeta && out[0].Meta["words_count"] != int64(200) {
				t.Errorf("words_count = %v", out[0].Meta["words_count"])
			}
			if len(out[1].Meta) != 0 {
				t.Errorf("unknown article should stay bare, got %v", out[1].Meta)
			}
		})
	}
}
