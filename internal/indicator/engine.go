package indicator

import (
	"errors"
	"math"
	"sort"

	"swing-advisor/internal/domain"
)

const (
	smaShortPeriod   = 20
	smaMidPeriod     = 50
	smaLongPeriod    = 200
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0
	volumeMAPeriod   = 20
	atrPeriod        = 14
	stochPeriod      = 14
	stochSmoothing   = 3
)

// ErrInsufficientHistory is returned when no bars are supplied at all. Short
// histories do not fail: each indicator whose lookback window is not covered
// is simply left absent on the result.
var ErrInsufficientHistory = errors.New("insufficient price history")

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives the full indicator set from ordered OHLCV history. Fields
// whose window exceeds the available history are nil.
func (e *Engine) Compute(symbol string, bars []domain.PriceBar) (domain.IndicatorSet, error) {
	bars = normalizeBars(bars)
	if len(bars) == 0 {
		return domain.IndicatorSet{}, ErrInsufficientHistory
	}

	set := domain.IndicatorSet{
		Symbol: symbol,
		AsOf:   bars[len(bars)-1].Timestamp,
	}

	closes := extractCloses(bars)
	volumes := extractVolumes(bars)

	set.SMA20 = smaLast(closes, smaShortPeriod)
	set.SMA50 = smaLast(closes, smaMidPeriod)
	set.SMA200 = smaLast(closes, smaLongPeriod)
	set.VolumeMA20 = smaLast(volumes, volumeMAPeriod)
	set.RSI14 = rsiLast(closes, rsiPeriod)
	set.MACD = macdLast(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	set.Bollinger = bollingerLast(closes, bollingerPeriod, bollingerStdDevs)
	set.ATR14 = atrLast(bars, atrPeriod)
	set.Stochastic = stochasticLast(bars, stochPeriod, stochSmoothing)

	return set, nil
}

func normalizeBars(in []domain.PriceBar) []domain.PriceBar {
	out := make([]domain.PriceBar, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func extractCloses(bars []domain.PriceBar) []float64 {
	values := make([]float64, len(bars))
	for i := range bars {
		values[i] = bars[i].Close
	}
	return values
}

func extractVolumes(bars []domain.PriceBar) []float64 {
	values := make([]float64, len(bars))
	for i := range bars {
		values[i] = bars[i].Volume
	}
	return values
}

// smaLast returns the unweighted mean of the last n values, nil when fewer
// than n values exist.
func smaLast(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	window := values[len(values)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)
	return &mean
}

// rsiLast computes Wilder-smoothed RSI. The first `period` deltas form the
// seed averages; subsequent deltas are smoothed. No losses yields exactly
// 100, no gains exactly 0.
func rsiLast(closes []float64, period int) *float64 {
	if len(closes) <= period {
		return nil
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	rsi := rsiFromAvg(avgGain, avgLoss)
	return &rsi
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// emaSeries computes an EMA seeded with the SMA of the first window. Entries
// before the seed index are NaN.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) < period {
		return out
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func macdLast(closes []float64, fast, slow, signal int) *domain.MACD {
	if len(closes) < slow+signal-1 {
		return nil
	}

	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)

	// MACD values exist from the slow EMA seed onward.
	macdValues := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macdValues = append(macdValues, fastEMA[i]-slowEMA[i])
	}

	signalSeries := emaSeries(macdValues, signal)
	lastSignal := signalSeries[len(signalSeries)-1]
	if math.IsNaN(lastSignal) {
		return nil
	}

	lastMACD := macdValues[len(macdValues)-1]
	return &domain.MACD{
		Value:     lastMACD,
		Signal:    lastSignal,
		Histogram: lastMACD - lastSignal,
	}
}

func bollingerLast(closes []float64, period int, stdDevs float64) *domain.Bollinger {
	if len(closes) < period {
		return nil
	}
	window := closes[len(closes)-period:]
	mean, std := meanStd(window)
	return &domain.Bollinger{
		Upper: mean + stdDevs*std,
		Mid:   mean,
		Lower: mean - stdDevs*std,
	}
}

// atrLast computes the Wilder-smoothed average true range. True ranges need a
// previous close, so `period+1` bars are the minimum.
func atrLast(bars []domain.PriceBar, period int) *float64 {
	if len(bars) <= period {
		return nil
	}

	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs = append(trs, trueRange(bars[i], bars[i-1].Close))
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)

	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return &atr
}

func trueRange(bar domain.PriceBar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if hc := math.Abs(bar.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(bar.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// stochasticLast computes %K over the trailing window and %D as the simple
// average of the last `smoothing` %K values. A flat window floors %K to 0.
func stochasticLast(bars []domain.PriceBar, period, smoothing int) *domain.Stochastic {
	if len(bars) < period+smoothing-1 {
		return nil
	}

	kValues := make([]float64, 0, smoothing)
	for offset := smoothing - 1; offset >= 0; offset-- {
		end := len(bars) - offset
		kValues = append(kValues, stochasticK(bars[end-period:end]))
	}

	var dSum float64
	for _, k := range kValues {
		dSum += k
	}
	return &domain.Stochastic{
		K: kValues[len(kValues)-1],
		D: dSum / float64(smoothing),
	}
}

func stochasticK(window []domain.PriceBar) float64 {
	low := window[0].Low
	high := window[0].High
	for _, b := range window[1:] {
		if b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
	}
	if high == low {
		return 0
	}
	return 100 * (window[len(window)-1].Close - low) / (high - low)
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	if len(values) == 1 {
		return mean, 0
	}
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
