package repository

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/okian/pitwall/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then userID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the board from
// best to worst. Ties share a rank and the next distinct score takes the
// following rank (1, 1, 2).

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, fresh *node) *node {
	if n == nil {
		return fresh
	}
	if less(fresh.score, fresh.id, n.score, n.id) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{UserID: n.id, Score: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

var _ Store = (*TreapStore)(nil)

// TreapStore is a single leaderboard.
type TreapStore struct {
	mu     sync.RWMutex
	name   string
	seed   uint64
	rng    *rand.Rand
	root   *node
	byID   map[string]int
	counts map[int]int // users per score
	scores []int       // distinct scores, descending
}

// NewTreapStore constructs an empty board.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		name:   "default",
		seed:   uint64(time.Now().UnixNano()),
		byID:   make(map[string]int),
		counts: make(map[int]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	return s
}

// Name returns the board label.
func (s *TreapStore) Name() string { return s.name }

// Set implements Store.Set in O(log n) expected time plus an O(d) shift of
// the distinct-score index.
func (s *TreapStore) Set(_ context.Context, userID string, score int) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	if old, ok := s.byID[userID]; ok {
		if old == score {
			s.mu.Unlock()
			return nil
		}
		s.root = deleteNode(s.root, userID, old)
		s.dropScore(old)
	}
	s.byID[userID] = score
	s.addScore(score)
	s.root = insert(s.root, &node{id: userID, score: score, prio: s.rng.Uint64(), size: 1})
	count := len(s.byID)
	s.mu.Unlock()

	metrics.RecordLeaderboardUpdate()
	metrics.UpdateRankedUsers(s.name, count)
	return nil
}

// Remove implements Store.Remove.
func (s *TreapStore) Remove(_ context.Context, userID string) bool {
	s.mu.Lock()
	old, ok := s.byID[userID]
	if ok {
		s.root = deleteNode(s.root, userID, old)
		s.dropScore(old)
		delete(s.byID, userID)
	}
	count := len(s.byID)
	s.mu.Unlock()

	if ok {
		metrics.UpdateRankedUsers(s.name, count)
	}
	return ok
}

// Rank implements Store.Rank in O(log d).
func (s *TreapStore) Rank(_ context.Context, userID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byID[userID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: s.rankOf(score), UserID: userID, Score: score}, nil
}

// TopN implements Store.TopN.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// rankOf returns the dense rank of score. Must hold s.mu.
func (s *TreapStore) rankOf(score int) int {
	i := sort.Search(len(s.scores), func(i int) bool { return s.scores[i] <= score })
	return i + 1
}

func (s *TreapStore) addScore(score int) {
	s.counts[score]++
	if s.counts[score] > 1 {
		return
	}
	i := sort.Search(len(s.scores), func(i int) bool { return s.scores[i] <= score })
	s.scores = append(s.scores, 0)
	copy(s.scores[i+1:], s.scores[i:])
	s.scores[i] = score
}

func (s *TreapStore) dropScore(score int) {
	s.counts[score]--
	if s.counts[score] > 0 {
		return
	}
	delete(s.counts, score)
	i := sort.Search(len(s.scores), func(i int) bool { return s.scores[i] <= score })
	if i < len(s.scores) && s.scores[i] == score {
		s.scores = append(s.scores[:i], s.scores[i+1:]...)
	}
}

// assignRanksWithTies assigns dense ranks to entries already in board order.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}
