// Package event реализует простой наблюдатель: подписчики регистрируют
// обработчик и получают функцию для отписки.
package event

import (
	"maps"
	"slices"
	"sync"
)

// Subject рассылает значения типа T всем подписчикам.
// Нулевое значение готово к использованию.
type Subject[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(T)
}

// Subscribe регистрирует обработчик и возвращает функцию отписки.
// Повторный вызов функции отписки безопасен.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(T))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Publish синхронно вызывает всех подписчиков в порядке подписки.
func (s *Subject[T]) Publish(v T) {
	s.mu.RLock()
	ids := slices.Sorted(maps.Keys(s.subs))
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len возвращает число активных подписчиков.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
