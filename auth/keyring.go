package auth

import (
	"errors"
	"sync"

	"github.com/anistream/anistream/constant"
	"github.com/anistream/anistream/internal/store"
	"github.com/anistream/anistream/where"
	"github.com/zalando/go-keyring"
)

const tokenKey = "session-token"

// KeyringStore keeps the token in the system keyring and the user profile in
// the data directory.
type KeyringStore struct {
	users store.Store[*User]
	mu    sync.Mutex
	subs  []func(Session)
}

// NewKeyringStore creates a store over the given profile store.
func NewKeyringStore(users store.Store[*User]) *KeyringStore {
	return &KeyringStore{users: users}
}

// OpenKeyringStore returns the store backed by the user's data directory.
func OpenKeyringStore() *KeyringStore {
	return NewKeyringStore(store.NewGache(where.User(), func() *User { return nil }))
}

// Read implements Store. A missing token yields an empty session.
func (k *KeyringStore) Read() (Session, error) {
	token, err := keyring.Get(constant.Anistream, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}

	user, err := k.users.Get()
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

// Write implements Store.
func (k *KeyringStore) Write(s Session) error {
	if err := keyring.Set(constant.Anistream, tokenKey, s.Token); err != nil {
		return err
	}
	if err := k.users.Set(s.User); err != nil {
		return err
	}
	k.notify(s)
	return nil
}

// Clear implements Store.
func (k *KeyringStore) Clear() error {
	err := keyring.Delete(constant.Anistream, tokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	if err := k.users.Set(nil); err != nil {
		return err
	}
	k.notify(Session{})
	return nil
}

// Subscribe implements Store.
func (k *KeyringStore) Subscribe(fn func(Session)) func() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.subs = append(k.subs, fn)
	idx := len(k.subs) - 1
	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		k.subs[idx] = nil
	}
}

func (k *KeyringStore) notify(s Session) {
	k.mu.Lock()
	subs := append([]func(Session)(nil), k.subs...)
	k.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(s)
		}
	}
}

// MemoryStore is a volatile Store.
type MemoryStore struct {
	inner *store.Memory[Session]
}

// NewMemoryStore creates an empty volatile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{inner: store.NewMemory(Session{})}
}

// Read implements Store.
func (m *MemoryStore) Read() (Session, error) { return m.inner.Get() }

// Write implements Store.
func (m *MemoryStore) Write(s Session) error { return m.inner.Set(s) }

// Clear implements Store.
func (m *MemoryStore) Clear() error { return m.inner.Set(Session{}) }

// Subscribe implements Store.
func (m *MemoryStore) Subscribe(fn func(Session)) func() { return m.inner.Subscribe(fn) }
