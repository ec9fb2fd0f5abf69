package story

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TagLength - длина тега корреляции в символах.
const TagLength = 16

// TagRegistry выдает теги корреляции. Тег занят, пока его не освободят через Release,
// и до этого повторно не выдается.
type TagRegistry struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	newID    func() string
}

func NewTagRegistry() *TagRegistry {
	return &TagRegistry{
		inFlight: make(map[string]struct{}),
		newID:    func() string { return uuid.NewString() },
	}
}

// Issue возвращает новый тег из 16 hex-символов.
func (r *TagRegistry) Issue() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		tag := strings.ReplaceAll(r.newID(), "-", "")[:TagLength]
		if _, dup := r.inFlight[tag]; dup {
			continue
		}
		r.inFlight[tag] = struct{}{}
		return tag
	}
}

// Release освобождает тег после того, как наблюдатель завершил поиск.
func (r *TagRegistry) Release(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, tag)
}
