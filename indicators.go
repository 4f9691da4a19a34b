// FILE: indicators.go
// Package main – Technical indicators used by the execution simulator
// (ATR-based slippage, fed by the strategy host's ATR reading on each
// entry order) and the demo strategy.
//
//   • SMA(c, n)        – Simple Moving Average of Close
//   • RSI(c, n)        – Relative Strength Index (Wilder's smoothing)
//   • ZScore(c, n)     – Rolling Z-Score of Close
//   • ATR(c, n)        – Average True Range
//   • EMA(c, n)        – Exponential Moving Average of Close
//   • MACD(c, fast, slow, signal) – MACD line, signal line, histogram
//   • OBV(c)           – On-Balance Volume
//   • RollingStd(c, n) – Rolling standard deviation of Close
//
// Notes
//   - All functions accept a slice of Bar.
//   - Outputs are aligned to input length; unavailable lookbacks emit
//     NaN/0 as noted per function.
//   - Keep these fast and allocation-light; they're called per-bar.
package main

import "math"

// SMA returns the n-period simple moving average of Close, aligned to c.
// For indices < n-1, the function returns NaN.
func SMA(c []Bar, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := range c {
		sum += c[i].Close
		if i >= n {
			sum -= c[i-n].Close
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RSI returns the n-period Relative Strength Index using Wilder's
// smoothing. Indices before the first full window are zero (0). A
// window with gains and no losses yields 100.
func RSI(c []Bar, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		return out
	}
	var gain, loss float64
	for i := 1; i < len(c); i++ {
		d := c[i].Close - c[i-1].Close
		if i <= n {
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
			if i == n {
				avgGain := gain / float64(n)
				avgLoss := loss / float64(n)
				rs := 0.0
				if avgLoss != 0 {
					rs = avgGain / avgLoss
				} else if avgGain > 0 {
					rs = math.Inf(1)
				}
				out[i] = 100.0 - (100.0 / (1.0 + rs))
			}
		} else {
			if d > 0 {
				gain = (gain*float64(n-1) + d) / float64(n)
				loss = (loss*float64(n-1) + 0) / float64(n)
			} else {
				gain = (gain*float64(n-1) + 0) / float64(n)
				loss = (loss*float64(n-1) - d) / float64(n)
			}
			rs := 0.0
			if loss != 0 {
				rs = gain / loss
			} else if gain > 0 {
				rs = math.Inf(1)
			}
			out[i] = 100.0 - (100.0 / (1.0 + rs))
		}
	}
	return out
}

// ZScore returns the rolling z-score of Close over window n, aligned to c.
// For indices < n-1, the function returns 0.
func ZScore(c []Bar, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 1 || len(c) == 0 {
		return out
	}
	var sum, sumSq float64
	for i := range c {
		x := c[i].Close
		sum += x
		sumSq += x * x
		if i >= n {
			y := c[i-n].Close
			sum -= y
			sumSq -= y * y
		}
		if i >= n-1 {
			mean := sum / float64(n)
			variance := (sumSq / float64(n)) - (mean * mean)
			std := math.Sqrt(math.Max(variance, 1e-12))
			out[i] = (x - mean) / std
		} else {
			out[i] = 0
		}
	}
	return out
}

// trueRange is the per-bar true range used by ATR: max(high-low,
// |high-prevClose|, |low-prevClose|).
func trueRange(cur Bar, prevClose float64, hasPrev bool) float64 {
	hl := cur.High - cur.Low
	if !hasPrev {
		return hl
	}
	hc := math.Abs(cur.High - prevClose)
	lc := math.Abs(cur.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR returns the n-period Average True Range using Wilder's smoothing,
// aligned to c. Indices before the first full window are 0.
func ATR(c []Bar, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		return out
	}
	var sum, atr float64
	for i := range c {
		prevClose := 0.0
		hasPrev := i > 0
		if hasPrev {
			prevClose = c[i-1].Close
		}
		tr := trueRange(c[i], prevClose, hasPrev)
		switch {
		case i < n:
			sum += tr
			if i == n-1 {
				atr = sum / float64(n)
				out[i] = atr
			}
		default:
			atr = (atr*float64(n-1) + tr) / float64(n)
			out[i] = atr
		}
	}
	return out
}

// EMA returns the n-period Exponential Moving Average of Close, seeded
// by a simple average of the first n closes. Indices before the seed
// point return NaN.
func EMA(c []Bar, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	k := 2.0 / (float64(n) + 1.0)
	var sum, ema float64
	for i := range c {
		if i < n {
			sum += c[i].Close
			if i == n-1 {
				ema = sum / float64(n)
				out[i] = ema
			} else {
				out[i] = math.NaN()
			}
			continue
		}
		ema = c[i].Close*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// MACD returns the MACD line (fast EMA - slow EMA), its signal line
// (EMA of the MACD line), and the histogram (macd - signal), all
// aligned to c. Typical periods are (12, 26, 9).
func MACD(c []Bar, fast, slow, signal int) (macd, sig, hist []float64) {
	macd = make([]float64, len(c))
	sig = make([]float64, len(c))
	hist = make([]float64, len(c))
	if len(c) == 0 {
		return
	}
	emaFast := EMA(c, fast)
	emaSlow := EMA(c, slow)
	for i := range c {
		if math.IsNaN(emaFast[i]) || math.IsNaN(emaSlow[i]) {
			macd[i] = math.NaN()
		} else {
			macd[i] = emaFast[i] - emaSlow[i]
		}
	}
	// Signal line: EMA of the MACD line, skipping leading NaNs.
	k := 2.0 / (float64(signal) + 1.0)
	seeded := false
	var sigVal, sum float64
	count := 0
	for i := range c {
		if math.IsNaN(macd[i]) {
			sig[i] = math.NaN()
			hist[i] = math.NaN()
			continue
		}
		if !seeded {
			sum += macd[i]
			count++
			if count == signal {
				sigVal = sum / float64(signal)
				seeded = true
				sig[i] = sigVal
				hist[i] = macd[i] - sigVal
			} else {
				sig[i] = math.NaN()
				hist[i] = math.NaN()
			}
			continue
		}
		sigVal = macd[i]*k + sigVal*(1-k)
		sig[i] = sigVal
		hist[i] = macd[i] - sigVal
	}
	return
}

// OBV returns the On-Balance Volume series: running sum of volume
// signed by the direction of the close-to-close change.
func OBV(c []Bar) []float64 {
	out := make([]float64, len(c))
	if len(c) == 0 {
		return out
	}
	var obv float64
	for i := range c {
		if i == 0 {
			out[i] = 0
			continue
		}
		switch {
		case c[i].Close > c[i-1].Close:
			obv += c[i].Volume
		case c[i].Close < c[i-1].Close:
			obv -= c[i].Volume
		}
		out[i] = obv
	}
	return out
}

// RollingStd returns the rolling population standard deviation of Close
// over window n, aligned to c. For indices < n-1, returns 0.
func RollingStd(c []Bar, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 1 || len(c) == 0 {
		return out
	}
	var sum, sumSq float64
	for i := range c {
		x := c[i].Close
		sum += x
		sumSq += x * x
		if i >= n {
			y := c[i-n].Close
			sum -= y
			sumSq -= y * y
		}
		if i >= n-1 {
			mean := sum / float64(n)
			variance := math.Max((sumSq/float64(n))-(mean*mean), 0)
			out[i] = math.Sqrt(variance)
		} else {
			out[i] = 0
		}
	}
	return out
}
