package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"swing-advisor/internal/domain"
	"swing-advisor/internal/service"
)

type SignalStore interface {
	InsertSignals(ctx context.Context, generatedAt time.Time, signals []domain.Signal) error
}

type SignalNotifier interface {
	NotifySignals(ctx context.Context, signals []domain.Signal) error
}

// ResultPublisher persists a cycle's ranking and broadcasts it. Persistence
// failure is fatal for the publish; notification failure is only logged since
// the signals are already on record.
type ResultPublisher struct {
	store    SignalStore
	notifier SignalNotifier
	now      func() time.Time
}

func NewResultPublisher(store SignalStore, notifier SignalNotifier) *ResultPublisher {
	return &ResultPublisher{store: store, notifier: notifier, now: time.Now}
}

func (p *ResultPublisher) Publish(ctx context.Context, result service.CycleResult) error {
	if len(result.Ranked) == 0 {
		return nil
	}

	if p.store != nil {
		if err := p.store.InsertSignals(ctx, p.now().UTC(), result.Ranked); err != nil {
			return fmt.Errorf("persist signals: %w", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.NotifySignals(ctx, result.Ranked); err != nil {
			log.Printf("notify signals: %v", err)
		}
	}
	return nil
}
