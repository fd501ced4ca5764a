package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInitAndGet(t *testing.T) {
	Convey("Given an initialised global logger", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
			So(func() { Named("test").Info(context.Background(), "hello", String("k", "v")) }, ShouldNotPanic)
			So(Sync(), ShouldBeNil)
		})
	})
}

func TestJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		l := New(WithFormat("JSON"), WithOutput(&buf), WithLevel(slog.LevelDebug)).Named("service")

		Convey("When a line is logged with fields", func() {
			l.Warn(context.Background(), "race scored", String("race_id", "2025-aus"), Int("bets", 3), Error(errors.New("late")))

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)

			Convey("Then fields are grouped under the logger name", func() {
				So(line["msg"], ShouldEqual, "race scored")
				So(line["level"], ShouldEqual, "WARN")
				group, ok := line["service"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["race_id"], ShouldEqual, "2025-aus")
				So(group["bets"], ShouldEqual, float64(3))
				So(group["error"], ShouldEqual, "late")
				So(group["source"], ShouldContainSubstring, "logger_test.go:")
			})
		})
	})
}

func TestLevels(t *testing.T) {
	Convey("Given a text logger at warn without source", t, func() {
		var buf bytes.Buffer
		l := New(WithOutput(&buf), WithLevel(slog.LevelWarn), WithSource(false))

		Convey("Then lines below the level are dropped", func() {
			l.Info(context.Background(), "hidden")
			l.Debug(context.Background(), "hidden")
			So(buf.Len(), ShouldEqual, 0)

			l.Error(context.Background(), "shown")
			So(buf.String(), ShouldContainSubstring, "msg=shown")
			So(buf.String(), ShouldNotContainSubstring, "source=")
		})

		Convey("Then SetLevelString changes the level at runtime", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			l.Debug(context.Background(), "now visible")
			So(strings.Count(buf.String(), "\n"), ShouldEqual, 1)
		})
	})
}

func TestParseLevel(t *testing.T) {
	Convey("Given level names", t, func() {
		for name, want := range map[string]slog.Level{
			"debug": slog.LevelDebug, "": slog.LevelInfo, "info": slog.LevelInfo,
			"WARN": slog.LevelWarn, "warning": slog.LevelWarn, "error": slog.LevelError,
		} {
			got, err := ParseLevel(name)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("Then unknown names fail", func() {
			_, err := ParseLevel("verbose")
			So(err, ShouldNotBeNil)
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given the no-op logger", t, func() {
		l := Nop().Named("quiet")

		Convey("Then logging is a no-op", func() {
			So(func() { l.Info(context.Background(), "dropped", Bool("ok", true), Int64("n", 1)) }, ShouldNotPanic)
		})
	})
}
