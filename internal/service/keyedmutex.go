package service

import (
	"sort"
	"sync"
)

// keyedMutex 按 key 的互斥锁（请求级/人员级临界区）
// 引用计数：无人持有时回收条目，map 不会随 key 数量无限增长。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLockEntry
}

type keyedLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedLockEntry{}}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}

// LockAll 按排序后的顺序获取多把锁（固定顺序避免死锁）
// 返回对应的解锁函数，解锁顺序与加锁相反。
func (k *keyedMutex) LockAll(keys []string) func() {
	sorted := append([]string{}, keys...)
	sort.Strings(sorted)
	// 去重：同一 key 重复加锁会自锁
	uniq := sorted[:0]
	for i, key := range sorted {
		if i == 0 || key != sorted[i-1] {
			uniq = append(uniq, key)
		}
	}
	for _, key := range uniq {
		k.Lock(key)
	}
	return func() {
		for i := len(uniq) - 1; i >= 0; i-- {
			k.Unlock(uniq[i])
		}
	}
}

// LockRegistry 服务间共享的锁注册表
// requests: 申请级临界区（到达确认/取消/分配互斥）
// persons:  人员级临界区（分配时重验资格，防止重复入请求）
type LockRegistry struct {
	Requests *keyedMutex
	Persons  *keyedMutex
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		Requests: newKeyedMutex(),
		Persons:  newKeyedMutex(),
	}
}
