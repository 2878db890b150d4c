package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN before lookback is satisfied, got %v", out[:2])
	}

	want := []float64{2, 3, 4}
	for i, w := range want {
		if got := out[i+2]; math.Abs(got-w) > 1e-9 {
			t.Fatalf("SMA[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestSMAInsufficientData(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("expected all NaN for short series, index %d = %v", i, v)
		}
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	values := []float64{2, 4, 6, 8}
	out := EMA(values, 3)

	if math.Abs(out[2]-4) > 1e-9 {
		t.Fatalf("EMA seed = %v, want SMA 4", out[2])
	}

	// alpha = 0.5 for period 3: next = (8-4)*0.5 + 4 = 6
	if math.Abs(out[3]-6) > 1e-9 {
		t.Fatalf("EMA[3] = %v, want 6", out[3])
	}
}

func TestRSIExtremes(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	out := RSI(rising, 5)
	if got := out[len(out)-1]; math.Abs(got-100) > 1e-9 {
		t.Fatalf("RSI of monotonically rising series = %v, want 100", got)
	}

	falling := []float64{8, 7, 6, 5, 4, 3, 2, 1}
	out = RSI(falling, 5)
	if got := out[len(out)-1]; math.Abs(got) > 1e-9 {
		t.Fatalf("RSI of monotonically falling series = %v, want 0", got)
	}
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 100
	}

	line, signal, hist := MACD(values, 12, 26, 9)
	last := len(values) - 1
	if math.Abs(line[last]) > 1e-9 || math.Abs(signal[last]) > 1e-9 || math.Abs(hist[last]) > 1e-9 {
		t.Fatalf("MACD of flat series = (%v, %v, %v), want zeros", line[last], signal[last], hist[last])
	}
}

func TestBollingerBandsFlatSeries(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = 50
	}

	upper, middle, lower := BollingerBands(values, 20, 2)
	last := len(values) - 1
	if middle[last] != 50 || upper[last] != 50 || lower[last] != 50 {
		t.Fatalf("flat series bands = (%v, %v, %v), want all 50", upper[last], middle[last], lower[last])
	}
}

func TestBollingerBandsSpread(t *testing.T) {
	values := []float64{10, 12, 10, 12, 10, 12, 10, 12, 10, 12}
	upper, middle, lower := BollingerBands(values, 10, 2)
	last := len(values) - 1

	if math.Abs(middle[last]-11) > 1e-9 {
		t.Fatalf("middle band = %v, want 11", middle[last])
	}
	if upper[last] <= middle[last] || lower[last] >= middle[last] {
		t.Fatalf("bands not spread around middle: upper %v, middle %v, lower %v", upper[last], middle[last], lower[last])
	}
	if math.Abs((upper[last]-middle[last])-(middle[last]-lower[last])) > 1e-9 {
		t.Fatalf("bands not symmetric: upper %v, lower %v", upper[last], lower[last])
	}
}
