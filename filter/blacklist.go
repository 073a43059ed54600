package filter

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的文章。
type BlacklistFilter struct {
	ids map[int64]struct{}
}

// NewBlacklistFilter 用内存中的文章 ID 列表创建黑名单。
func NewBlacklistFilter(articleIDs []int64) *BlacklistFilter {
	ids := make(map[int64]struct{}, len(articleIDs))
	for _, id := range articleIDs {
		ids[id] = struct{}{}
	}
	return &BlacklistFilter{ids: ids}
}

// LoadBlacklist 从 Store 读取黑名单（值为 JSON 数组，如 [1, 2, 3]），与内存列表合并。
// key 不存在时只使用内存列表。
func LoadBlacklist(ctx context.Context, store core.Store, key string, articleIDs ...int64) (*BlacklistFilter, error) {
	f := NewBlacklistFilter(articleIDs)
	if store == nil || key == "" {
		return f, nil
	}
	data, err := store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "filter: invalid blacklist "+key, err)
	}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	return f, nil
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) Len() int { return len(f.ids) }

func (f *BlacklistFilter) ShouldFilter(_ context.Context, article core.Article) (bool, error) {
	_, ok := f.ids[article.ID]
	return ok, nil
}
