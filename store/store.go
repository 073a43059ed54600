// Package store 提供 core.Store 的实现：内存、Redis、Badger。
//
// 数据集 blob（点击日志、文章元数据、文章向量）可以放在任一后端，
// 也可以作为远端下载的本地读穿缓存。
//
//	var s core.Store = store.NewMemoryStore()
package store

import (
	"fmt"
	"time"

	"github.com/rushteam/artrec/core"
)

// ErrNotFound 是 core.ErrStoreNotFound 的别名，便于包内使用。
var ErrNotFound = core.ErrStoreNotFound

// Config 描述要打开的存储后端。
type Config struct {
	Backend    string // memory | redis | badger
	RedisAddr  string
	RedisDB    int
	BadgerPath string
}

// Open 按配置创建存储后端。
func Open(cfg Config) (core.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
	case "badger":
		if cfg.BadgerPath == "" {
			return nil, fmt.Errorf("store: badger backend requires a path")
		}
		return NewBadgerStore(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

func ttlDuration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}
