package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"swing-advisor/internal/domain"

	tele "gopkg.in/telebot.v3"
)

const recentSignalsLimit = 10

type SignalLister interface {
	ListRecentSignals(ctx context.Context, limit int) ([]domain.Signal, error)
}

// StartBot connects to Telegram and wires the chat commands. Returns a nil
// notifier when the token is unset so deployments without a bot still run
// cycles.
func StartBot(token string, chatIDs []int64, signals SignalLister) *Notifier {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	notifier := NewNotifier(b, chatIDs)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/signals", func(c tele.Context) error {
		if signals == nil {
			return c.Send("Signal history unavailable")
		}
		recent, err := signals.ListRecentSignals(context.Background(), recentSignalsLimit)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching signals: %v", err))
		}
		if len(recent) == 0 {
			return c.Send("No signals recorded yet.")
		}
		return c.Send(formatCycleMessage(recent))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chatID := c.Chat().ID
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /alerts on | /alerts off")
		}
		switch strings.ToLower(args[0]) {
		case "on":
			if notifier.Subscribe(chatID) {
				return c.Send("Alerts enabled for this chat.")
			}
			return c.Send("Alerts were already enabled.")
		case "off":
			if notifier.Unsubscribe(chatID) {
				return c.Send("Alerts disabled for this chat.")
			}
			return c.Send("Alerts were not enabled.")
		default:
			return c.Send("Usage: /alerts on | /alerts off")
		}
	})

	go b.Start()
	log.Println("Telegram bot started")
	return notifier
}
