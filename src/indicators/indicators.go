// Package indicators provides the technical indicator math used by the
// trading strategies. All functions operate on a closing-price series
// ascending by time and return series aligned to the input, with leading
// values set to NaN until the indicator has enough lookback.
package indicators

import "math"

// SMA computes the simple moving average over the given period.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with smoothing 2/(period+1).
// The first defined value is the SMA of the first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[period-1] = prev

	alpha := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*alpha + prev
		out[i] = prev
	}
	return out
}

// RSI computes the Relative Strength Index using Wilder smoothing.
func RSI(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the MACD line (fast EMA − slow EMA), its signal line (EMA of
// the MACD line) and the histogram (line − signal).
func MACD(values []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	n := len(values)
	line = nanSeries(n)
	signalLine = nanSeries(n)
	histogram = nanSeries(n)
	if fast <= 0 || slow <= 0 || signal <= 0 || n < slow+signal {
		return line, signalLine, histogram
	}

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := range values {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// The signal line is an EMA over the defined portion of the MACD line.
	defined := line[slow-1:]
	sig := EMA(defined, signal)
	for i, v := range sig {
		signalLine[slow-1+i] = v
	}
	for i := range values {
		if !math.IsNaN(line[i]) && !math.IsNaN(signalLine[i]) {
			histogram[i] = line[i] - signalLine[i]
		}
	}
	return line, signalLine, histogram
}

// BollingerBands computes the middle band (SMA), and upper/lower bands at
// stdDev standard deviations from it.
func BollingerBands(values []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	n := len(values)
	upper = nanSeries(n)
	middle = SMA(values, period)
	lower = nanSeries(n)
	if period <= 0 || n < period {
		return upper, middle, lower
	}

	for i := period - 1; i < n; i++ {
		mean := middle[i]
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + stdDev*sd
		lower[i] = mean - stdDev*sd
	}
	return upper, middle, lower
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
