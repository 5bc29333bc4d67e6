package api

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultStoreSize bounds how many translations stay retrievable by id.
const DefaultStoreSize = 1024

// TranslationStore keeps recent translations. The oldest are evicted once
// the store is full.
type TranslationStore struct {
	items *lru.Cache
}

func NewTranslationStore(size int) *TranslationStore {
	if size <= 0 {
		size = DefaultStoreSize
	}
	items, err := lru.New(size)
	if err != nil {
		// lru.New only rejects non-positive sizes
		panic(err)
	}
	return &TranslationStore{items: items}
}

func (s *TranslationStore) Put(t Translation) {
	s.items.Add(t.ID, t)
}

func (s *TranslationStore) Get(id string) (Translation, bool) {
	v, ok := s.items.Get(id)
	if !ok {
		return Translation{}, false
	}
	return v.(Translation), true
}

func (s *TranslationStore) Delete(id string) bool {
	return s.items.Remove(id)
}

func (s *TranslationStore) Len() int { return s.items.Len() }
