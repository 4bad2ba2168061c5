package metrics

import (
	"time"

	"github.com/tradion/volatility-signals/internal/models"
)

// buildSeries creates one-minute observations; volumes shorter than prices
// repeat their last value
func buildSeries(prices []float64, volumes []int64) []models.MarketObservation {
	start := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	series := make([]models.MarketObservation, len(prices))
	for i, p := range prices {
		vol := volumes[len(volumes)-1]
		if i < len(volumes) {
			vol = volumes[i]
		}
		series[i] = models.MarketObservation{
			Symbol:    "SPY",
			Price:     p,
			Volume:    vol,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return series
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func repeatVolume(v int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func alternating(a, b float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = a
		} else {
			out[i] = b
		}
	}
	return out
}
