package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述“可推荐”条件，表达式为 false 的文章被排除。
//
//	f, err := filter.NewExprFilter(`article.words_count >= 50`)
type ExprFilter struct {
	prg *dsl.Program
}

func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

func (f *ExprFilter) Expr() string { return f.prg.String() }

func (f *ExprFilter) ShouldFilter(_ context.Context, article core.Article) (bool, error) {
	keep, err := f.prg.EvalArticle(article)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
