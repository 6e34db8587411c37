package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"swing-advisor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

// InsertSignals persists one cycle's ranked signals. Citations and market
// state are stored as JSONB since they are read back whole, never queried by
// field.
func (r *SignalRepository) InsertSignals(ctx context.Context, generatedAt time.Time, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "signal-repo.insert-signals")
	defer span.End()

	for _, s := range signals {
		citations, err := json.Marshal(s.Citations)
		if err != nil {
			return fmt.Errorf("encode citations for %s: %w", s.Symbol, err)
		}
		state, err := json.Marshal(s.MarketState)
		if err != nil {
			return fmt.Errorf("encode market state for %s: %w", s.Symbol, err)
		}
		_, err = r.pool.Exec(ctx,
			`INSERT INTO signals (symbol, generated_at, action, confidence, entry_price,
			                      target_price, stop_loss, holding_period_days,
			                      risk_reward_ratio, reasoning, citations, market_state)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			s.Symbol, generatedAt, string(s.Action), s.Confidence, s.EntryPrice,
			s.TargetPrice, s.StopLoss, s.HoldingPeriodDays,
			s.RiskRewardRatio, s.Reasoning, citations, state,
		)
		if err != nil {
			return fmt.Errorf("insert signal for %s: %w", s.Symbol, err)
		}
	}
	return nil
}

// ListRecentSignals returns the newest signals first, capped at limit.
func (r *SignalRepository) ListRecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-recent")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, action, confidence, entry_price, target_price, stop_loss,
		        holding_period_days, risk_reward_ratio, reasoning
		 FROM signals
		 ORDER BY generated_at DESC, confidence DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var action string
		if err := rows.Scan(&s.Symbol, &action, &s.Confidence, &s.EntryPrice, &s.TargetPrice,
			&s.StopLoss, &s.HoldingPeriodDays, &s.RiskRewardRatio, &s.Reasoning); err != nil {
			return nil, err
		}
		s.Action = domain.Action(action)
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
