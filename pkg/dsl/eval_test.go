package dsl

import (
	"testing"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

func TestProgram_EvalArticle(t *testing.T) {
	a := core.Article{ID: 7, CategoryID: 281, WordsCount: 40, Attrs: map[string]string{"publisher_id": "0"}}

	tests := []struct {
		expr string
		want bool
	}{
		{`article.words_count >= 50`, false},
		{`article.category_id in [281, 375]`, true},
		{`article.attrs.publisher_id == "0"`, true},
		{`has(article.attrs.missing)`, false},
		{`article.id == 7 && article.words_count < 100`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got, err := p.EvalArticle(a)
			if err != nil {
				t.Fatalf("EvalArticle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EvalArticle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, expr := range []string{`article.words_count >=`, `1 + 2`, `"text"`} {
		if _, err := Compile(expr); err == nil {
			t.Errorf("Compile(%q) expected error", expr)
		}
	}
}

func TestProgram_ItemAndContext(t *testing.T) {
	it := core.NewItem(3)
	it.Score = 0.8
	it.PutLabel("recall_source", utils.Label{Value: "similarity", Source: "recall"})
	rctx := &core.RecommendContext{UserID: 9, N: 5}

	p, err := Compile(`item.score > 0.5 && item.labels.recall_source == "similarity" && rctx.user_id == 9`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got, err := p.Eval(map[string]any{"item": ItemVars(it), "rctx": ContextVars(rctx)})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !got {
		t.Error("Eval() = false, want true")
	}
}

func TestProgram_MissingKey(t *testing.T) {
	p, err := Compile(`article.attrs.nope == "x"`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if _, err := p.EvalArticle(core.Article{ID: 1}); err == nil {
		t.Error("expected eval error on missing key")
	}
}
