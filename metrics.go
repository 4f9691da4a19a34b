// FILE: metrics.go
// Package main – C6 metrics computation: turns a run's closed trades
// and equity curve into a BacktestMetrics summary (spec §4.6).
//
// Grounded on original_source's backtest_runner_metrics.py, translated
// formula-for-formula (profit factor, expectancy, drawdown, streaks,
// Sharpe with the 96-point/day convention) rather than transliterated.
package main

import "math"

// computeMetrics implements spec §4.6 in full. Returns a zero-value
// BacktestMetrics when there are no trades, matching the Python
// reference's "empty BacktestMetrics() if no trades" short circuit.
func computeMetrics(trades []Trade, equity []EquityPoint, initialCapital float64) BacktestMetrics {
	if len(trades) == 0 {
		return BacktestMetrics{}
	}

	m := BacktestMetrics{}
	m.TotalTrades = len(trades)

	var grossProfit, grossLoss float64
	var rSum float64
	var rCount int
	var bestR, worstR float64
	haveR := false

	for _, t := range trades {
		if t.RealizedPnL > 0 {
			m.Wins++
			grossProfit += t.RealizedPnL
		} else {
			m.Losses++
			grossLoss += -t.RealizedPnL
		}
		if t.RMultiple != nil {
			r := *t.RMultiple
			rSum += r
			rCount++
			if !haveR || r > bestR {
				bestR = r
			}
			if !haveR || r < worstR {
				worstR = r
			}
			haveR = true
		}
	}
	m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	lossRate := float64(m.Losses) / float64(m.TotalTrades)

	// Profit factor: spec §4.6 / §8 "boundary behaviors".
	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	default:
		m.ProfitFactor = 0
	}

	if m.Wins > 0 {
		m.AvgWin = grossProfit / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLoss = -grossLoss / float64(m.Losses)
	}
	m.Expectancy = m.WinRate*m.AvgWin + lossRate*m.AvgLoss

	if rCount > 0 {
		avg := rSum / float64(rCount)
		m.AvgRMultiple = &avg
		m.BestRMultiple = &bestR
		m.WorstRMultiple = &worstR
	}

	finalEquity := initialCapital
	if len(equity) > 0 {
		finalEquity = equity[len(equity)-1].Equity
	}
	if initialCapital != 0 {
		m.TotalReturnPct = (finalEquity/initialCapital - 1) * 100
	}

	m.MaxDrawdownPct, m.MaxDrawdownDays = computeDrawdown(equity)
	m.MaxConsecWins, m.MaxConsecLosses = computeStreaks(trades)
	m.Sharpe = computeSharpe(equity)

	var totalDurationMin float64
	for _, t := range trades {
		totalDurationMin += t.DurationMin
	}
	m.AvgDurationMin = totalDurationMin / float64(len(trades))

	return m
}

// computeDrawdown tracks the running equity peak and the largest
// percent drop from it, plus the longest elapsed time (in days)
// between a peak and its recovery (or the end of the series).
func computeDrawdown(equity []EquityPoint) (maxDDPct, maxDDDays float64) {
	if len(equity) == 0 {
		return 0, 0
	}
	peak := equity[0].Equity
	peakTime := equity[0].Time
	underwater := false
	for _, e := range equity {
		if e.Equity >= peak {
			if underwater {
				if days := e.Time.Sub(peakTime).Hours() / 24; days > maxDDDays {
					maxDDDays = days
				}
				underwater = false
			}
			peak = e.Equity
			peakTime = e.Time
			continue
		}
		underwater = true
		if peak <= 0 {
			continue
		}
		dd := (peak - e.Equity) / peak * 100
		if dd > maxDDPct {
			maxDDPct = dd
		}
	}
	if underwater {
		if days := equity[len(equity)-1].Time.Sub(peakTime).Hours() / 24; days > maxDDDays {
			maxDDDays = days
		}
	}
	return
}

// computeStreaks returns the longest consecutive-win and
// consecutive-loss runs across trades in exit order.
func computeStreaks(trades []Trade) (maxWins, maxLosses int) {
	var curWin, curLoss int
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			curWin++
			curLoss = 0
		} else {
			curLoss++
			curWin = 0
		}
		if curWin > maxWins {
			maxWins = curWin
		}
		if curLoss > maxLosses {
			maxLosses = curLoss
		}
	}
	return
}

// computeSharpe implements spec §4.6's convention explicitly: returns
// nil when the series is too short or has zero variance. The 96-factor
// assumes ~15-minute equity sampling, annualized over 365 days — spec
// §9 says to document this rather than hide it behind "annualization".
func computeSharpe(equity []EquityPoint) *float64 {
	if len(equity) < 30 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return nil
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		sumSq += (r - mean) * (r - mean)
	}
	// Population stdev (divide by n, not n-1), matching the Python
	// ground truth's np.std default (ddof=0).
	std := math.Sqrt(sumSq / float64(len(returns)))
	if std == 0 {
		return nil
	}

	annualizedFactor := math.Sqrt(96 * 365)
	sharpe := (mean / std) * annualizedFactor
	return &sharpe
}
