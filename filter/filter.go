// Package filter 决定哪些文章永远不进入候选集。
//
// 过滤在模型加载时对全部文章求值一次，结果是“不可推荐”文章集合，
// 排序器在扫描时跳过这些文章，所以 top-n 始终由可推荐文章填满。
package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/artrec/core"
)

// Filter 判断一篇文章是否应被排除。返回 true 表示排除。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断文章是否应该被过滤
	ShouldFilter(ctx context.Context, article core.Article) (bool, error)
}

// Ineligible 对所有文章依次应用过滤器，返回被排除的文章 ID 集合。
// 任一过滤器出错即返回错误（加载阶段失败优于静默放行）。
func Ineligible(ctx context.Context, articles []core.Article, filters ...Filter) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	if len(filters) == 0 {
		return out, nil
	}
	for _, a := range articles {
		for _, f := range filters {
			drop, err := f.ShouldFilter(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("filter %s article %d: %w", f.Name(), a.ID, err)
			}
			if drop {
				out[a.ID] = struct{}{}
				break
			}
		}
	}
	return out, nil
}
