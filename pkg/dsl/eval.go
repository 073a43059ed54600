// Package dsl 是基于 CEL (Common Expression Language) 的表达式求值。
//
// 表达式在加载时编译一次，之后可被并发求值。可用变量：
//
//	article   文章元数据：article.id / article.category_id / article.words_count / article.attrs
//	item      推荐结果：item.id / item.score / item.meta
//	rctx      请求上下文：rctx.user_id / rctx.n / rctx.params
//
// 示例：
//   - `article.words_count >= 50` → 过滤超短文章
//   - `!(article.category_id in [281, 375])` → 排除指定类别
//   - `article.attrs.publisher_id == "0"` → 按原始列过滤
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/artrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("article", cel.DynType),
			cel.Variable("item", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的布尔表达式。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。表达式必须返回 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %v", t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 在给定变量上求值；未提供的变量视为空 map。
func (p *Program) Eval(vars map[string]any) (bool, error) {
	input := map[string]any{
		"article": map[string]any{},
		"item":    map[string]any{},
		"rctx":    map[string]any{},
	}
	for k, v := range vars {
		input[k] = v
	}
	out, _, err := p.prg.Eval(input)
	if err != nil {
		// 访问不存在的 key 会报错，表达式里应先用 has() 判断
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// EvalArticle 以文章元数据为输入求值。
func (p *Program) EvalArticle(a core.Article) (bool, error) {
	return p.Eval(map[string]any{"article": ArticleVars(a)})
}

// ArticleVars 把文章元数据转换为 CEL 输入。
func ArticleVars(a core.Article) map[string]any {
	attrs := make(map[string]any, len(a.Attrs))
	for k, v := range a.Attrs {
		attrs[k] = v
	}
	return map[string]any{
		"id":          a.ID,
		"category_id": a.CategoryID,
		"words_count": a.WordsCount,
		"attrs":       attrs,
	}
}

// ItemVars 把推荐结果转换为 CEL 输入。
func ItemVars(it *core.Item) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}
	meta := it.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"id":     it.ID,
		"score":  it.Score,
		"meta":   meta,
		"labels": labels,
	}
}

// ContextVars 把请求上下文转换为 CEL 输入。
func ContextVars(rctx *core.RecommendContext) map[string]any {
	if rctx == nil {
		return map[string]any{}
	}
	params := rctx.Params
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"user_id":   rctx.UserID,
		"n":         rctx.N,
		"with_meta": rctx.WithMeta,
		"params":    params,
	}
}
