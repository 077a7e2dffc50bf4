package store

import (
	"net/url"
	"sync"
)

// QueryStore keeps values in a URL query string.
type QueryStore struct {
	mu       sync.Mutex
	values   url.Values
	onChange func(query string)
}

// NewQueryStore copies values.
func NewQueryStore(values url.Values) *QueryStore {
	s := &QueryStore{values: url.Values{}}
	for k, vs := range values {
		s.values[k] = append([]string(nil), vs...)
	}
	return s
}

// ParseQueryStore parses a raw query, with or without the leading "?".
func ParseQueryStore(raw string) (*QueryStore, error) {
	if len(raw) > 0 && raw[0] == '?' {
		raw = raw[1:]
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return NewQueryStore(values), nil
}

// OnChange sets the hook run with the encoded query after every write.
// A navigation layer uses it to replace the current location.
func (s *QueryStore) OnChange(fn func(query string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Get returns the first value of key.
func (s *QueryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs, ok := s.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Set replaces every value of key.
func (s *QueryStore) Set(key, value string) error {
	s.mu.Lock()
	s.values.Set(key, value)
	fn := s.onChange
	encoded := s.values.Encode()
	s.mu.Unlock()

	if fn != nil {
		fn(encoded)
	}
	return nil
}

// String returns the encoded query, keys sorted.
func (s *QueryStore) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Encode()
}
