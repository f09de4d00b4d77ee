package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/stockagent/pkg/marketdata"
)

// Tool names
const (
	RealtimePriceTool   = "retrieve_realtime_stock_price"
	HistoricalPriceTool = "retrieve_historical_stock_price"
)

const dateLayout = "2006-01-02"

// ErrNoHistoricalData is the user-facing error for an empty price range
var ErrNoHistoricalData = errors.New("No historical data found.")

// StockTools returns the stock price tool catalog backed by provider
func StockTools(provider marketdata.Provider) []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        RealtimePriceTool,
			Description: "Retrieve the latest closing price of a stock",
			Parameters: []ToolParameter{
				{Name: "symbol", Type: "string", Description: "Ticker symbol, e.g. AAPL", Required: true},
			},
			Handler: realtimePriceHandler(provider),
		},
		{
			Name:        HistoricalPriceTool,
			Description: "Summarize daily closing prices of a stock over a date range",
			Parameters: []ToolParameter{
				{Name: "symbol", Type: "string", Description: "Ticker symbol, e.g. AAPL", Required: true},
				{Name: "start_date", Type: "string", Description: "First day, YYYY-MM-DD", Required: true, Format: "date"},
				{Name: "end_date", Type: "string", Description: "Day after the last day, YYYY-MM-DD", Required: true, Format: "date"},
			},
			Handler: historicalPriceHandler(provider),
		},
	}
}

// NewStockRegistry builds the registry of stock tools
func NewStockRegistry(provider marketdata.Provider) (*Registry, error) {
	return NewRegistry(StockTools(provider)...)
}

func realtimePriceHandler(provider marketdata.Provider) ToolHandler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		price, err := provider.CurrentPrice(ctx, symbolOf(args))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"latest_price": formatPrice(price),
		}, nil
	}
}

func historicalPriceHandler(provider marketdata.Provider) ToolHandler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		startDate, _ := args["start_date"].(string)
		endDate, _ := args["end_date"].(string)

		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q", startDate)
		}
		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date %q", endDate)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("end_date must be after start_date")
		}

		series, err := provider.HistoricalPrices(ctx, symbolOf(args), start, end)
		if err != nil {
			if errors.Is(err, marketdata.ErrNoData) {
				return nil, ErrNoHistoricalData
			}
			return nil, err
		}

		summary, err := series.Summarize()
		if err != nil {
			return nil, ErrNoHistoricalData
		}

		return map[string]any{
			"start_date": startDate,
			"end_date":   endDate,
			"min":        formatPrice(summary.Min),
			"max":        formatPrice(summary.Max),
			"mean":       formatPrice(summary.Mean),
		}, nil
	}
}

func formatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
