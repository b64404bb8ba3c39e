// Package locker сериализует операции по строковому ключу:
// последовательность позиций галереи и создание конкретной миниатюры.
package locker

import (
	"context"
	"errors"
	"sync"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker захватывает блокировку по ключу. Возвращенную функцию
// освобождения нужно вызвать ровно один раз.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex блокировка в пределах процесса. Записи удаляются, когда
// на ключ больше никто не претендует.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyLock),
	}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.release(key, l)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Size количество ключей, которые сейчас удерживаются или ожидаются
func (m *KeyedMutex) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
