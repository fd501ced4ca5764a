package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/pitwall/internal/domain/dedupe"
	"github.com/okian/pitwall/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestJobKey(t *testing.T) {
	Convey("Given a race, bet and revision", t, func() {
		Convey("Then the key changes with the revision", func() {
			So(dedupe.JobKey("r1", "b1", 1), ShouldEqual, "r1/b1/1")
			So(dedupe.JobKey("r1", "b1", 2), ShouldNotEqual, dedupe.JobKey("r1", "b1", 1))
		})
	})
}

func TestSubmissionKey(t *testing.T) {
	Convey("Given a classification", t, func() {
		results := []scoring.Result{
			{DriverID: "VER", Position: scoring.IntPtr(1)},
			{DriverID: "NOR", Position: scoring.IntPtr(2)},
			{DriverID: "HAM", DNF: true},
		}
		key := dedupe.SubmissionKey("r1", results, "NOR")

		Convey("Then the key names the race", func() {
			So(key, ShouldStartWith, "r1/")
		})

		Convey("Then row order does not matter", func() {
			shuffled := []scoring.Result{results[2], results[0], results[1]}
			So(dedupe.SubmissionKey("r1", shuffled, "NOR"), ShouldEqual, key)
		})

		Convey("Then a different fastest lap changes the key", func() {
			So(dedupe.SubmissionKey("r1", results, "VER"), ShouldNotEqual, key)
		})

		Convey("Then a swapped position changes the key", func() {
			swapped := []scoring.Result{
				{DriverID: "VER", Position: scoring.IntPtr(2)},
				{DriverID: "NOR", Position: scoring.IntPtr(1)},
				{DriverID: "HAM", DNF: true},
			}
			So(dedupe.SubmissionKey("r1", swapped, "NOR"), ShouldNotEqual, key)
		})

		Convey("Then another race gets another key", func() {
			So(dedupe.SubmissionKey("r2", results, "NOR"), ShouldNotEqual, key)
		})
	})
}

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a key is new", func() {
			seen := d.SeenAndRecord(ctx, "r1/b1/1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a second sighting reports it as seen", func() {
				So(d.SeenAndRecord(ctx, "r1/b1/1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And Unrecord lets it through again", func() {
				d.Unrecord(ctx, "r1/b1/1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "r1/b1/1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown key", func() {
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i))
		}

		Convey("Then the oldest key is evicted first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "k4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
		})

		Convey("And an unrecorded key does not count against the bound", func() {
			d.Unrecord(ctx, "k3")
			So(d.SeenAndRecord(ctx, "k5"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "k2"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
	})

	Convey("Given concurrent callers racing on one key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "r1/b1/1") {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one records it", func() {
			So(winners, ShouldEqual, 1)
		})
	})
}
