package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rushteam/artrec/core"
)

// BadgerStore 是基于 BadgerDB 的本地持久化 Store。
// 典型用途是远端数据集 blob 的磁盘缓存：进程重启后无需重新下载。
type BadgerStore struct {
	db *badger.DB
}

// MaxInMemoryValue 内存模式下单个值的上限（不含）。内存模式没有 value log，
// 值全部写入 LSM，超过 1 MiB 的值会被 Badger 拒绝，恰好 1 MiB 会在写协程中 panic。
const MaxInMemoryValue = 1 << 20

// ErrValueTooLarge 内存模式下写入过大的值。
var ErrValueTooLarge = core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported, "store: value too large for in-memory badger")

// NewBadgerStore 打开 path 下的 Badger 数据库；path 为空时使用内存模式（仅适合小对象与测试）。
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: open badger", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreWithDB 使用已打开的数据库创建 Store，Close 时会关闭该数据库。
func NewBadgerStoreWithDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Name() string { return "badger" }

func (b *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrStoreNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *BadgerStore) checkSize(key string, value []byte) error {
	if b.db.Opts().InMemory && len(value) >= MaxInMemoryValue {
		return fmt.Errorf("%s (%d bytes): %w", key, len(value), ErrValueTooLarge)
	}
	return nil
}

func (b *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	if err := b.checkSize(key, value); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newBadgerEntry(key, value, ttl))
	})
}

func newBadgerEntry(key string, value []byte, ttl []int) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if d := ttlDuration(ttl); d > 0 {
		e = e.WithTTL(d)
	}
	return e
}

func (b *BadgerStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", k, err)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[k] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *BadgerStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for k, v := range kvs {
		if err := b.checkSize(k, v); err != nil {
			return err
		}
		if err := wb.SetEntry(newBadgerEntry(k, v, ttl)); err != nil {
			return fmt.Errorf("batch set %s: %w", k, err)
		}
	}
	return wb.Flush()
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

var _ core.Store = (*BadgerStore)(nil)
