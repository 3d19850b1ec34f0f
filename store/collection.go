package store

import (
	"context"
	"errors"
	"sync"
)

// Store bundles the Civil Memory client with the key layout and the
// per-key locks shared by every collection.
type Store struct {
	Client *Client
	Keys   Keys
	locks  *keyLocks
}

func New(client *Client, prefix string) *Store {
	return &Store{Client: client, Keys: Keys{Prefix: prefix}, locks: newKeyLocks()}
}

// Ping checks Civil Memory with the health key.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, s.Keys.Health())
}

// Collection is a key whose value is a JSON array of T. Civil Memory has no
// partial updates, so every change rewrites the whole array.
type Collection[T any] struct {
	store *Store
	mode  Mode
	key   string
}

// CollectionOf returns the collection stored at key.
func CollectionOf[T any](s *Store, mode Mode, key string) *Collection[T] {
	return &Collection[T]{store: s, mode: mode, key: key}
}

func (c *Collection[T]) Key() string { return c.key }

// Load returns the stored items. A key with no value is an empty collection.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	var items []T
	err := c.store.Client.Get(ctx, c.mode, c.key, &items)
	if errors.Is(err, ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Update loads the collection, applies fn and writes the result back. Calls
// for the same key are serialized so no write is lost to a concurrent one.
// If fn returns an error nothing is written.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	unlock := c.store.locks.lock(c.key)
	defer unlock()

	items, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	items, err = fn(items)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	if err := c.store.Client.Set(ctx, c.mode, c.key, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Drop deletes the whole collection.
func (c *Collection[T]) Drop(ctx context.Context) error {
	unlock := c.store.locks.lock(c.key)
	defer unlock()
	return c.store.Client.Delete(ctx, c.mode, c.key)
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
