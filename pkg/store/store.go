// Package store provides the key/value stores behind persisted variables.
//
// A #let-url variable lives in a QueryStore, #let-session in a session
// store and #let-local in a durable local store. Every store satisfies
// the same contract: Get reports a missing key with ok=false, Set
// overwrites.
package store

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store: closed")

// Store is a string key/value store.
type Store interface {
	Get(key string) (value string, ok bool)
	Set(key, value string) error
}

// Kind names one of the three persisted stores.
type Kind string

const (
	URL     Kind = "url"
	Local   Kind = "local"
	Session Kind = "session"
)

// ParseKind maps a #let suffix to a store kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case URL, Local, Session:
		return k, nil
	}
	return "", fmt.Errorf("store: unknown kind %q", s)
}

// Set bundles the three stores.
type Set struct {
	URL     Store
	Local   Store
	Session Store
}

// NewMemorySet returns a set with an empty query store and memory local
// and session stores.
func NewMemorySet() Set {
	return Set{
		URL:     NewQueryStore(nil),
		Local:   NewMemoryStore(),
		Session: NewMemoryStore(),
	}
}

// Get returns the store of kind k, or nil.
func (s Set) Get(k Kind) Store {
	switch k {
	case URL:
		return s.URL
	case Local:
		return s.Local
	case Session:
		return s.Session
	}
	return nil
}
