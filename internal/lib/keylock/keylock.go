// Package keylock предоставляет набор мьютексов, адресуемых строковым ключом.
// Все операции над одной подпиской сериализуются через её ключ,
// операции над разными ключами выполняются параллельно.
package keylock

import "sync"

// KeyLock раздаёт мьютексы по ключу. Нулевое значение непригодно,
// используйте New.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New создаёт пустой KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Lock захватывает мьютекс ключа key, блокируясь до его освобождения.
func (k *KeyLock) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock освобождает мьютекс ключа key. Запись удаляется,
// когда на неё не осталось ожидающих.
func (k *KeyLock) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
