package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/pitwall/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntryWireShape(t *testing.T) {
	Convey("Given a leaderboard entry with a negative total", t, func() {
		entry := types.Entry{Rank: 3, UserID: "user-9", Score: -10}

		Convey("Then it serialises with snake_case keys and an integer score", func() {
			raw, err := json.Marshal(entry)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"rank":3,"user_id":"user-9","score":-10}`)
		})
	})
}
