// Package bot delivers ranked recommendations to Telegram chats.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"swing-advisor/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier broadcasts one cycle's ranked signals to subscribed chats.
type Notifier struct {
	sender messageSender

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

// NewNotifier seeds the subscriber set from configuration; chats can still be
// added or removed at runtime.
func NewNotifier(sender messageSender, chatIDs []int64) *Notifier {
	subs := make(map[int64]struct{}, len(chatIDs))
	for _, id := range chatIDs {
		subs[id] = struct{}{}
	}
	return &Notifier{sender: sender, subscribers: subs}
}

func (n *Notifier) Subscribe(chatID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.subscribers[chatID]; exists {
		return false
	}
	n.subscribers[chatID] = struct{}{}
	return true
}

func (n *Notifier) Unsubscribe(chatID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.subscribers[chatID]; !exists {
		return false
	}
	delete(n.subscribers, chatID)
	return true
}

func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// NotifySignals sends one message per cycle covering all ranked signals.
// Send failures for individual chats are collected, not fatal for the rest.
func (n *Notifier) NotifySignals(ctx context.Context, signals []domain.Signal) error {
	_ = ctx
	if n == nil || n.sender == nil || len(signals) == 0 {
		return nil
	}

	chatIDs := n.snapshotSubscribers()
	if len(chatIDs) == 0 {
		return nil
	}

	msg := formatCycleMessage(signals)
	var failures []string
	for _, chatID := range chatIDs {
		if _, err := n.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			failures = append(failures, fmt.Sprintf("chat %d: %v", chatID, err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("failed sending %d alerts: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

func (n *Notifier) snapshotSubscribers() []int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	chatIDs := make([]int64, 0, len(n.subscribers))
	for chatID := range n.subscribers {
		chatIDs = append(chatIDs, chatID)
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs
}

func formatCycleMessage(signals []domain.Signal) string {
	lines := make([]string, 0, len(signals)+1)
	lines = append(lines, "Daily swing signals:")
	for i, s := range signals {
		lines = append(lines, formatSignal(i+1, s))
	}
	return strings.Join(lines, "\n")
}

func formatSignal(rank int, s domain.Signal) string {
	if s.Action == domain.ActionHold {
		line := fmt.Sprintf("%d. %s HOLD (confidence %.0f)", rank, s.Symbol, s.Confidence)
		if s.Reasoning != "" {
			line += " - " + s.Reasoning
		}
		return line
	}
	return fmt.Sprintf(
		"%d. %s %s (confidence %.0f) entry %.2f target %.2f stop %.2f R:R %.2f over %dd, %d citations",
		rank, s.Symbol, s.Action, s.Confidence,
		s.EntryPrice, s.TargetPrice, s.StopLoss, s.RiskRewardRatio,
		s.HoldingPeriodDays, len(s.Citations),
	)
}
