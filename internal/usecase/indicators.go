package usecase

import "errors"

// ErrNotEnoughData is returned by RSI when the close series is shorter
// than period+1 bars. Callers must treat it as "no signal yet", not as a
// failure.
var ErrNotEnoughData = errors.New("not enough data for indicator")

// Default MACD periods.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// RSI computes the relative strength index over the most recent `period`
// deltas of the close series. Average gain and average loss are simple
// averages of that window. Returns exactly 100 when the window contains
// no losses.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, ErrNotEnoughData
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}

	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100.0, nil
	}

	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// EMA returns the exponential moving average of values with smoothing
// factor k = 2/(period+1), seeded by the first value.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// MACD returns the MACD line, signal line and histogram for the close
// series. All three outputs have the same length as the input. With
// fewer than max(fast,slow,signal)+1 closes it degrades to single-element
// zero slices; too little history is a "warming up" condition here, not
// an error.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	need := fast
	if slow > need {
		need = slow
	}
	if signal > need {
		need = signal
	}
	if len(closes) < need+1 {
		return []float64{0}, []float64{0}, []float64{0}
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	signalLine = EMA(macd, signal)

	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, hist
}
