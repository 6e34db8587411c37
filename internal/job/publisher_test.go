package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"swing-advisor/internal/domain"
	"swing-advisor/internal/service"
)

type stubStore struct {
	inserted [][]domain.Signal
	err      error
}

func (s *stubStore) InsertSignals(_ context.Context, _ time.Time, signals []domain.Signal) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, signals)
	return nil
}

type stubNotifier struct {
	notified [][]domain.Signal
	err      error
}

func (s *stubNotifier) NotifySignals(_ context.Context, signals []domain.Signal) error {
	if s.err != nil {
		return s.err
	}
	s.notified = append(s.notified, signals)
	return nil
}

func TestPublishStoresAndNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{}
	pub := NewResultPublisher(store, notifier)

	result := service.CycleResult{Ranked: []domain.Signal{{Symbol: "AAPL", Action: domain.ActionHold}}}
	if err := pub.Publish(context.Background(), result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 || len(notifier.notified) != 1 {
		t.Fatalf("expected one store and one notify, got %d/%d", len(store.inserted), len(notifier.notified))
	}
}

func TestPublishStoreFailureIsFatal(t *testing.T) {
	store := &stubStore{err: fmt.Errorf("insert failed")}
	notifier := &stubNotifier{}
	pub := NewResultPublisher(store, notifier)

	result := service.CycleResult{Ranked: []domain.Signal{{Symbol: "AAPL"}}}
	if err := pub.Publish(context.Background(), result); err == nil {
		t.Fatal("expected persistence error to surface")
	}
	if len(notifier.notified) != 0 {
		t.Fatal("must not notify when persistence fails")
	}
}

func TestPublishNotifyFailureIsLoggedOnly(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{err: fmt.Errorf("telegram down")}
	pub := NewResultPublisher(store, notifier)

	result := service.CycleResult{Ranked: []domain.Signal{{Symbol: "AAPL"}}}
	if err := pub.Publish(context.Background(), result); err != nil {
		t.Fatalf("notification failure is not fatal: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatal("expected signals persisted")
	}
}

func TestPublishEmptyRankingNoop(t *testing.T) {
	store := &stubStore{}
	pub := NewResultPublisher(store, &stubNotifier{})

	if err := pub.Publish(context.Background(), service.CycleResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("expected no inserts for empty ranking")
	}
}
