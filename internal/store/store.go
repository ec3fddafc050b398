// Package store defines the read/write/subscribe contract shared by the
// session, watchlist and history stores.
package store

import (
	"reflect"
	"sync"

	"github.com/anistream/anistream/filesystem"
	"github.com/metafates/gache"
)

// Store holds a single value of type T. Subscribers are called after every
// successful write with the new value.
type Store[T any] interface {
	Get() (T, error)
	Set(T) error
	// Update reads, transforms and writes the value under one lock.
	Update(func(T) (T, error)) error
	Subscribe(func(T)) (cancel func())
}

type observers[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (o *observers[T]) subscribe(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.subs == nil {
		o.subs = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.subs[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *observers[T]) notify(value T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Gache is a Store persisted as a JSON file through gache.
type Gache[T any] struct {
	cacher  *gache.Cache[T]
	initial func() T
	mu      sync.Mutex
	observers[T]
}

// NewGache opens a file-backed store at path. initial produces the value
// returned while the file is missing.
func NewGache[T any](path string, initial func() T) *Gache[T] {
	return &Gache[T]{
		cacher: gache.New[T](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
		initial: initial,
	}
}

func (g *Gache[T]) get() (T, error) {
	cached, expired, err := g.cacher.Get()
	if err != nil {
		var zero T
		return zero, err
	}
	if expired || isZero(cached) {
		return g.initial(), nil
	}
	return cached, nil
}

// Get implements Store.
func (g *Gache[T]) Get() (T, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.get()
}

// Set implements Store.
func (g *Gache[T]) Set(value T) error {
	g.mu.Lock()
	err := g.cacher.Set(value)
	g.mu.Unlock()

	if err != nil {
		return err
	}
	g.notify(value)
	return nil
}

// Update implements Store.
func (g *Gache[T]) Update(fn func(T) (T, error)) error {
	g.mu.Lock()
	current, err := g.get()
	if err != nil {
		g.mu.Unlock()
		return err
	}

	next, err := fn(current)
	if err == nil {
		err = g.cacher.Set(next)
	}
	g.mu.Unlock()

	if err != nil {
		return err
	}
	g.notify(next)
	return nil
}

// Subscribe implements Store.
func (g *Gache[T]) Subscribe(fn func(T)) func() {
	return g.subscribe(fn)
}

// Memory is a volatile Store.
type Memory[T any] struct {
	value T
	mu    sync.Mutex
	observers[T]
}

// NewMemory returns a Memory store holding initial.
func NewMemory[T any](initial T) *Memory[T] {
	return &Memory[T]{value: initial}
}

// Get implements Store.
func (m *Memory[T]) Get() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

// Set implements Store.
func (m *Memory[T]) Set(value T) error {
	m.mu.Lock()
	m.value = value
	m.mu.Unlock()

	m.notify(value)
	return nil
}

// Update implements Store.
func (m *Memory[T]) Update(fn func(T) (T, error)) error {
	m.mu.Lock()
	next, err := fn(m.value)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.value = next
	m.mu.Unlock()

	m.notify(next)
	return nil
}

// Subscribe implements Store.
func (m *Memory[T]) Subscribe(fn func(T)) func() {
	return m.subscribe(fn)
}

func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}
