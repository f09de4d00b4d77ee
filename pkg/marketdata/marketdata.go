// Package marketdata provides price lookups used by the stock tools.
package marketdata

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownSymbol is returned when the source does not know the symbol
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrNoData is returned when the source knows the symbol but has no prices for the range
	ErrNoData = errors.New("no price data")
)

// Provider is the market data capability
type Provider interface {
	// CurrentPrice returns the most recent closing price
	CurrentPrice(ctx context.Context, symbol string) (float64, error)

	// HistoricalPrices returns daily closes in [start, end)
	HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) (Series, error)
}

// PricePoint is a single daily close
type PricePoint struct {
	Time  time.Time
	Close float64
}

// Series is an ordered list of closes for one symbol
type Series struct {
	Symbol string
	Points []PricePoint
}

// Summary holds descriptive statistics of a series
type Summary struct {
	Min  float64
	Max  float64
	Mean float64
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Points)
}

// Summarize computes min, max and mean of the closes.
// It returns ErrNoData for an empty series.
func (s Series) Summarize() (Summary, error) {
	if len(s.Points) == 0 {
		return Summary{}, ErrNoData
	}

	sum := Summary{Min: s.Points[0].Close, Max: s.Points[0].Close}
	total := 0.0
	for _, p := range s.Points {
		if p.Close < sum.Min {
			sum.Min = p.Close
		}
		if p.Close > sum.Max {
			sum.Max = p.Close
		}
		total += p.Close
	}
	sum.Mean = total / float64(len(s.Points))

	return sum, nil
}
