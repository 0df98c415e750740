package keylock

import (
	"context"
	"sync"
)

// KeyedMutex взаимное исключение по строковому ключу.
// Захват одного ключа не блокирует другие ключи; запись о ключе
// удаляется, когда на неё никто не ссылается.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock ждёт ключ до отмены ctx. Возвращает функцию освобождения.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	e := k.acquireEntry(key)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.releaseEntry(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.releaseEntry(key, e)
		})
	}, nil
}

// Len количество ключей, которые сейчас захвачены или ожидаются.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func (k *KeyedMutex) acquireEntry(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) releaseEntry(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}
