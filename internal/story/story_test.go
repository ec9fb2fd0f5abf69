package story

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"gamebook-server/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestStore_HeadDefaultsToSeed(t *testing.T) {
	seed := randomKey(t)
	s := NewStore(seed)

	assert.Equal(t, seed, s.Head("reader-a"))
	assert.Equal(t, seed, s.Latest())
}

func TestStore_AdvanceIsPerReader(t *testing.T) {
	seed := randomKey(t)
	next := randomKey(t)
	s := NewStore(seed)

	require.NoError(t, s.Advance("reader-a", seed, next))

	assert.Equal(t, next, s.Head("reader-a"))
	assert.Equal(t, seed, s.Head("reader-b"), "other readers keep their own head")
	assert.Equal(t, next, s.Latest())
}

func TestStore_Offered(t *testing.T) {
	seed := randomKey(t)
	next := randomKey(t)
	s := NewStore(seed)

	assert.True(t, s.Offered(seed))
	assert.False(t, s.Offered(next))

	require.NoError(t, s.Advance("reader-a", seed, next))
	assert.True(t, s.Offered(next))
	assert.False(t, s.Offered(randomKey(t)))
}

func TestStore_AdvanceRejectsStaleHead(t *testing.T) {
	seed := randomKey(t)
	first := randomKey(t)
	second := randomKey(t)
	s := NewStore(seed)

	require.NoError(t, s.Advance("reader", seed, first))
	err := s.Advance("reader", seed, second)

	assert.ErrorIs(t, err, ErrStaleHead)
	assert.Equal(t, first, s.Head("reader"))
}

func TestStore_ConcurrentAdvanceOnlyOneWins(t *testing.T) {
	seed := randomKey(t)
	s := NewStore(seed)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		to := randomKey(t)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Advance("reader", seed, to) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestStore_ClaimSignatureOnce(t *testing.T) {
	s := NewStore(randomKey(t))
	assert.True(t, s.ClaimSignature("sig-1"))
	assert.False(t, s.ClaimSignature("sig-1"))
	assert.True(t, s.ClaimSignature("sig-2"))
}

func TestStore_RememberScene(t *testing.T) {
	s := NewStore(randomKey(t))
	addr := randomKey(t)
	_, ok := s.Scene(addr)
	assert.False(t, ok)

	scene := model.Scene{Title: "t", Description: "d", Choices: [3]string{"a", "b", "c"}}
	s.Remember(addr, scene)
	got, ok := s.Scene(addr)
	require.True(t, ok)
	assert.Equal(t, scene, got)
}

func TestStore_LockSerializesReader(t *testing.T) {
	s := NewStore(randomKey(t))
	unlock := s.Lock("reader")

	acquired := make(chan struct{})
	go func() {
		u := s.Lock("reader")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	// Другой читатель не ждет
	other := s.Lock("other")
	other()

	unlock()
	unlock() // повторный вызов безопасен
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after unlock")
	}

	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	assert.Empty(t, s.locks, "lock entries are released")
}

func TestTagRegistry_IssueFormatAndUniqueness(t *testing.T) {
	r := NewTagRegistry()
	hex := regexp.MustCompile(`^[0-9a-f]{16}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		tag := r.Issue()
		require.Regexp(t, hex, tag)
		_, dup := seen[tag]
		require.False(t, dup, "tag %s reissued", tag)
		seen[tag] = struct{}{}
	}
	assert.Len(t, r.inFlight, 500)
}

func TestTagRegistry_Release(t *testing.T) {
	r := NewTagRegistry()
	tags := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		tags = append(tags, r.Issue())
	}
	for _, tag := range tags {
		r.Release(tag)
	}
	assert.Empty(t, r.inFlight, "released tags are forgotten")

	r.Release("0000000000000000")
	assert.Empty(t, r.inFlight)
}

func TestTagRegistry_SkipsCollisions(t *testing.T) {
	r := NewTagRegistry()
	ids := []string{
		"aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee",
		"aaaaaaaa-bbbb-4ccc-8ddd-ffffffffffff", // тот же префикс
		"11111111-2222-4333-8444-555555555555",
	}
	r.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := r.Issue()
	second := r.Issue()
	assert.Equal(t, "aaaaaaaabbbb4ccc", first)
	assert.Equal(t, "1111111122224333", second)

	// освобожденный тег можно выдать снова
	r.Release(first)
	ids = []string{"aaaaaaaa-bbbb-4ccc-8ddd-000000000000"}
	assert.Equal(t, "aaaaaaaabbbb4ccc", r.Issue())
}
