// Package dedupe tracks result submissions that are already being scored so
// the same classification is not fanned out twice at once.
package dedupe

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/pitwall/internal/domain/scoring"
)

// Deduper records seen job keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key once the work it guards has finished.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// JobKey identifies the scoring of one bet against one results revision.
func JobKey(raceID, betID string, revision int) string {
	return fmt.Sprintf("%s/%s/%d", raceID, betID, revision)
}

// SubmissionKey identifies a classification for a race regardless of the
// order its rows were sent in.
func SubmissionKey(raceID string, results []scoring.Result, fastestLap string) string {
	rows := make([]string, 0, len(results))
	for _, r := range results {
		pos := "-"
		if r.Position != nil {
			pos = strconv.Itoa(*r.Position)
		}
		rows = append(rows, fmt.Sprintf("%s:%s:%t", r.DriverID, pos, r.DNF))
	}
	sort.Strings(rows)

	h := xxhash.New()
	_, _ = h.WriteString(strings.Join(rows, ","))
	_, _ = h.WriteString("|" + fastestLap)
	return fmt.Sprintf("%s/%016x", raceID, h.Sum64())
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
