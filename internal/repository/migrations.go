package repository

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS price_bars (
		symbol   TEXT             NOT NULL,
		bar_time TIMESTAMPTZ      NOT NULL,
		open     DOUBLE PRECISION NOT NULL,
		high     DOUBLE PRECISION NOT NULL,
		low      DOUBLE PRECISION NOT NULL,
		close    DOUBLE PRECISION NOT NULL,
		volume   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, bar_time)
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id                  BIGSERIAL PRIMARY KEY,
		symbol              TEXT             NOT NULL,
		generated_at        TIMESTAMPTZ      NOT NULL,
		action              TEXT             NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL,
		entry_price         DOUBLE PRECISION NOT NULL,
		target_price        DOUBLE PRECISION NOT NULL,
		stop_loss           DOUBLE PRECISION NOT NULL,
		holding_period_days INT              NOT NULL,
		risk_reward_ratio   DOUBLE PRECISION NOT NULL,
		reasoning           TEXT             NOT NULL,
		citations           JSONB            NOT NULL,
		market_state        JSONB            NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_generated_at ON signals (generated_at DESC)`,
}

// RunMigrations applies the schema statements in order. Every statement is
// idempotent, so re-running at startup is safe.
func RunMigrations(ctx context.Context, pool PgxPool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
