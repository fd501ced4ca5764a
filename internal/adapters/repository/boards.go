package repository

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// OverallBoard is the all-time board key.
const OverallBoard = "overall"

// SeasonBoard returns the key of a season's board.
func SeasonBoard(season int) string { return "season:" + strconv.Itoa(season) }

// RaceBoard returns the key of a single race's board.
func RaceBoard(raceID string) string { return "race:" + raceID }

// ValidateBoard checks a key produced by one of the helpers above, e.g. one
// taken from a query string.
func ValidateBoard(key string) error {
	if key == OverallBoard {
		return nil
	}
	kind, rest, ok := strings.Cut(key, ":")
	if !ok || rest == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBoard, key)
	}
	switch kind {
	case "season":
		if _, err := strconv.Atoi(rest); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidBoard, key)
		}
		return nil
	case "race":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidBoard, key)
}

// Boards is a registry of leaderboards created on first use.
type Boards struct {
	mu     sync.RWMutex
	boards map[string]*TreapStore
	opts   []Option
}

// NewBoards returns an empty registry. opts are applied to every board.
func NewBoards(opts ...Option) *Boards {
	return &Boards{boards: make(map[string]*TreapStore), opts: opts}
}

// Board returns the board for key, creating it if needed.
func (b *Boards) Board(key string) *TreapStore {
	b.mu.RLock()
	s, ok := b.boards[key]
	b.mu.RUnlock()
	if ok {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.boards[key]; ok {
		return s
	}
	opts := append(append([]Option(nil), b.opts...), WithName(key))
	s = NewTreapStore(opts...)
	b.boards[key] = s
	return s
}

// Lookup returns the board for key without creating it.
func (b *Boards) Lookup(key string) (*TreapStore, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.boards[key]
	return s, ok
}

// Drop discards a board, e.g. when its race is deleted.
func (b *Boards) Drop(key string) {
	b.mu.Lock()
	delete(b.boards, key)
	b.mu.Unlock()
}

// Keys lists the existing boards in sorted order.
func (b *Boards) Keys() []string {
	b.mu.RLock()
	keys := make([]string, 0, len(b.boards))
	for k := range b.boards {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
