package domain

import "time"

// PriceBar is one OHLCV bar. Sequences are chronologically increasing with
// no duplicate timestamps and are never mutated after ingestion.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

type MACD struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type Bollinger struct {
	Upper float64 `json:"upper"`
	Mid   float64 `json:"mid"`
	Lower float64 `json:"lower"`
}

type Stochastic struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// IndicatorSet holds derived indicators for one symbol as of one analysis
// cycle. Nil fields mean the history was too short for that window. Price
// history stays the source of truth; the set is recomputed every cycle.
type IndicatorSet struct {
	Symbol     string      `json:"symbol"`
	AsOf       time.Time   `json:"as_of"`
	SMA20      *float64    `json:"sma20,omitempty"`
	SMA50      *float64    `json:"sma50,omitempty"`
	SMA200     *float64    `json:"sma200,omitempty"`
	RSI14      *float64    `json:"rsi14,omitempty"`
	MACD       *MACD       `json:"macd,omitempty"`
	Bollinger  *Bollinger  `json:"bollinger,omitempty"`
	VolumeMA20 *float64    `json:"volume_ma20,omitempty"`
	ATR14      *float64    `json:"atr14,omitempty"`
	Stochastic *Stochastic `json:"stochastic,omitempty"`
}

// Pattern is a detected chart pattern with a strength in [0,1].
type Pattern struct {
	Name       string    `json:"name"`
	DetectedAt time.Time `json:"detected_at"`
	Strength   float64   `json:"strength"`
}

// MarketState is the unit of context passed into retrieval query construction
// and scoring. PriceChange1D is a signed percentage and VolumeRatio a multiple
// of the 20-bar volume average so downstream consumers treat all symbols
// uniformly regardless of absolute price scale.
type MarketState struct {
	Symbol        string       `json:"symbol"`
	Price         float64      `json:"price"`
	PriceChange1D float64      `json:"price_change_1d"`
	VolumeRatio   float64      `json:"volume_ratio"`
	Indicators    IndicatorSet `json:"indicators"`
	Patterns      []Pattern    `json:"patterns,omitempty"`
	NewsSentiment *float64     `json:"news_sentiment,omitempty"`
}

// KnowledgeFragment is one chunk of the trading knowledge corpus. The core
// only reads and ranks fragments; the external index owns them.
type KnowledgeFragment struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	SourceTitle string            `json:"source_title"`
	Chapter     string            `json:"chapter,omitempty"`
	Page        int               `json:"page,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// FusedFragment pairs a fragment with its fused retrieval score.
type FusedFragment struct {
	Fragment KnowledgeFragment `json:"fragment"`
	Score    float64           `json:"score"`
}

// RetrievalResult is ordered by fused score descending, deduplicated by
// fragment ID, ties broken by fragment ID ascending.
type RetrievalResult []FusedFragment

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Signal is one recommendation for one symbol in one cycle, immutable once
// scoring completes. A signal with no citations never carries a directional
// action; the ranker forces it to HOLD.
type Signal struct {
	Symbol            string              `json:"symbol"`
	Action            Action              `json:"action"`
	Confidence        float64             `json:"confidence"`
	EntryPrice        float64             `json:"entry_price,omitempty"`
	TargetPrice       float64             `json:"target_price,omitempty"`
	StopLoss          float64             `json:"stop_loss,omitempty"`
	HoldingPeriodDays int                 `json:"holding_period_days,omitempty"`
	RiskRewardRatio   float64             `json:"risk_reward_ratio,omitempty"`
	Reasoning         string              `json:"reasoning"`
	Citations         []KnowledgeFragment `json:"citations,omitempty"`
	MarketState       MarketState         `json:"market_state"`
}

// PromptContext is everything the external drafter sees for one symbol: the
// normalized market state and the retrieved knowledge fragments it may cite.
type PromptContext struct {
	State     MarketState
	QueryText string
	Fragments RetrievalResult
}

// RiskReward returns reward per unit of risk for the given price levels,
// 0 when the stop sits on the entry.
func RiskReward(entry, target, stop float64) float64 {
	risk := entry - stop
	if risk < 0 {
		risk = -risk
	}
	if risk == 0 {
		return 0
	}
	reward := target - entry
	if reward < 0 {
		reward = -reward
	}
	return reward / risk
}
