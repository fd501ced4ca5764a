package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/pkg/logger"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestTelegram(t *testing.T) {
	Convey("Given a notifier over a fake sender", t, func() {
		sender := &fakeSender{}
		n := NewTelegramWithSender(sender, 42, WithSendInterval(0), WithLogger(logger.Nop()))
		race := model.Race{ID: "r1", Name: "Monaco_GP", Season: 2025, Round: 8}
		report := service.Report{Bets: 3, Scored: 2, Failed: []service.BetFailure{{BetID: "b3"}}}
		top := []types.Entry{{Rank: 1, UserID: "alice", Score: 105}, {Rank: 2, UserID: "bob", Score: 70}}

		Convey("When a race is scored", func() {
			err := n.RaceScored(context.Background(), race, report, top)

			Convey("Then one Markdown message goes to the chat", func() {
				So(err, ShouldBeNil)
				So(len(sender.sent), ShouldEqual, 1)
				msg := sender.sent[0]
				So(msg.ChatID, ShouldEqual, int64(42))
				So(msg.ParseMode, ShouldEqual, tgbotapi.ModeMarkdown)
				So(msg.Text, ShouldContainSubstring, `Monaco\_GP`)
				So(msg.Text, ShouldContainSubstring, "1. alice: 105 pts")
				So(msg.Text, ShouldContainSubstring, "2/3 bets scored, 1 failed")
			})
		})

		Convey("When the sender fails", func() {
			sender.err = errors.New("429 Too Many Requests")
			err := n.RaceScored(context.Background(), race, report, top)

			Convey("Then the error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "429")
			})
		})

		Convey("When messages come faster than the interval", func() {
			slow := NewTelegramWithSender(sender, 42, WithSendInterval(time.Hour), WithLogger(logger.Nop()))
			So(slow.RaceScored(context.Background(), race, report, top), ShouldBeNil)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := slow.RaceScored(ctx, race, report, top)

			Convey("Then the second send waits and honours ctx", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(len(sender.sent), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a race nobody bet on", t, func() {
		text := FormatRaceScored(model.Race{Name: "Imola", Season: 2025, Round: 7}, service.Report{}, nil)
		So(text, ShouldContainSubstring, "No bets were placed.")
	})
}
