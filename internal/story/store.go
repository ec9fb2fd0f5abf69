package story

import (
	"errors"
	"sync"

	"gamebook-server/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrStaleHead - голова читателя сдвинулась после того, как прогон ее прочитал.
var ErrStaleHead = errors.New("story head moved")

var storyAdvances = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gamebook_story_advances_total",
	Help: "Successful story head reassignments.",
})

// Store хранит голову истории для каждого читателя.
// Читатель без записи начинает с начальной сцены.
type Store struct {
	seed solana.PublicKey

	mu      sync.RWMutex
	heads   map[string]solana.PublicKey
	latest  solana.PublicKey
	offered map[solana.PublicKey]struct{}
	scenes  map[solana.PublicKey]model.Scene
	claimed map[string]struct{}

	locksMu sync.Mutex
	locks   map[string]*readerLock
}

type readerLock struct {
	ch   chan struct{}
	refs int
}

func NewStore(seed solana.PublicKey) *Store {
	return &Store{
		seed:    seed,
		heads:   make(map[string]solana.PublicKey),
		latest:  seed,
		offered: map[solana.PublicKey]struct{}{seed: {}},
		scenes:  make(map[solana.PublicKey]model.Scene),
		claimed: make(map[string]struct{}),
		locks:   make(map[string]*readerLock),
	}
}

// Head возвращает текущую сцену читателя.
func (s *Store) Head(reader string) solana.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if head, ok := s.heads[reader]; ok {
		return head
	}
	return s.seed
}

// Latest - последняя сцена, на которую переключился любой читатель.
func (s *Store) Latest() solana.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Offered сообщает, была ли сцена когда-либо головой: начальная сцена
// или результат чьего-то Advance. Только с таких сцен можно продолжить историю.
func (s *Store) Offered(address solana.PublicKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.offered[address]
	return ok
}

// Advance переводит голову читателя с from на to.
// Если голова уже не from, ничего не меняется и возвращается ErrStaleHead.
func (s *Store) Advance(reader string, from, to solana.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.heads[reader]
	if !ok {
		current = s.seed
	}
	if !current.Equals(from) {
		return ErrStaleHead
	}
	s.heads[reader] = to
	s.latest = to
	s.offered[to] = struct{}{}
	storyAdvances.Inc()
	return nil
}

// Remember кэширует разобранную сцену по адресу ассета. Сцены неизменяемы.
func (s *Store) Remember(address solana.PublicKey, scene model.Scene) {
	s.mu.Lock()
	s.scenes[address] = scene
	s.mu.Unlock()
}

// Scene возвращает сцену из кэша.
func (s *Store) Scene(address solana.PublicKey) (model.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scene, ok := s.scenes[address]
	return scene, ok
}

// ClaimSignature отмечает подпись как использованную. Возвращает false,
// если подпись уже запускала прогон.
func (s *Store) ClaimSignature(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimed[signature]; ok {
		return false
	}
	s.claimed[signature] = struct{}{}
	return true
}

// Lock блокирует читателя до вызова возвращенной функции.
// Прогоны одного читателя выполняются строго по очереди.
func (s *Store) Lock(reader string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[reader]
	if !ok {
		l = &readerLock{ch: make(chan struct{}, 1)}
		s.locks[reader] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.ch <- struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, reader)
			}
			s.locksMu.Unlock()
		})
	}
}
