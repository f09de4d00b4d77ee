package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harun/stockagent/pkg/marketdata"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockProvider) HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) (marketdata.Series, error) {
	args := m.Called(ctx, symbol, start, end)
	return args.Get(0).(marketdata.Series), args.Error(1)
}

func stockHandler(t *testing.T, provider marketdata.Provider, name string) ToolHandler {
	t.Helper()
	r, err := NewStockRegistry(provider)
	require.NoError(t, err)
	def, ok := r.Lookup(name)
	require.True(t, ok)
	return def.Handler
}

func TestRealtimePrice(t *testing.T) {
	provider := new(mockProvider)
	provider.On("CurrentPrice", mock.Anything, "AAPL").Return(189.987, nil)

	handler := stockHandler(t, provider, RealtimePriceTool)
	payload, err := handler(context.Background(), map[string]any{"symbol": "aapl"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"latest_price": "$189.99"}, payload)
	provider.AssertExpectations(t)
}

func TestRealtimePrice_ProviderError(t *testing.T) {
	provider := new(mockProvider)
	provider.On("CurrentPrice", mock.Anything, "ZZZZ").
		Return(0.0, fmt.Errorf("ZZZZ: %w", marketdata.ErrUnknownSymbol))

	handler := stockHandler(t, provider, RealtimePriceTool)
	_, err := handler(context.Background(), map[string]any{"symbol": "ZZZZ"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, marketdata.ErrUnknownSymbol))
}

func TestHistoricalPrice(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	provider := new(mockProvider)
	provider.On("HistoricalPrices", mock.Anything, "MSFT", start, end).Return(marketdata.Series{
		Symbol: "MSFT",
		Points: []marketdata.PricePoint{{Close: 370}, {Close: 400.5}, {Close: 380}},
	}, nil)

	handler := stockHandler(t, provider, HistoricalPriceTool)
	payload, err := handler(context.Background(), map[string]any{
		"symbol":     "msft",
		"start_date": "2024-01-01",
		"end_date":   "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"start_date": "2024-01-01",
		"end_date":   "2024-02-01",
		"min":        "$370.00",
		"max":        "$400.50",
		"mean":       "$383.50",
	}, payload)
}

func TestHistoricalPrice_EmptySeries(t *testing.T) {
	provider := new(mockProvider)
	provider.On("HistoricalPrices", mock.Anything, "AAPL", mock.Anything, mock.Anything).
		Return(marketdata.Series{Symbol: "AAPL"}, nil)

	handler := stockHandler(t, provider, HistoricalPriceTool)
	_, err := handler(context.Background(), map[string]any{
		"symbol":     "AAPL",
		"start_date": "2024-01-06",
		"end_date":   "2024-01-07",
	})
	require.Error(t, err)
	assert.Equal(t, "No historical data found.", err.Error())
}

func TestHistoricalPrice_NoDataError(t *testing.T) {
	provider := new(mockProvider)
	provider.On("HistoricalPrices", mock.Anything, "AAPL", mock.Anything, mock.Anything).
		Return(marketdata.Series{}, fmt.Errorf("AAPL: %w", marketdata.ErrNoData))

	handler := stockHandler(t, provider, HistoricalPriceTool)
	_, err := handler(context.Background(), map[string]any{
		"symbol":     "AAPL",
		"start_date": "2024-01-01",
		"end_date":   "2024-01-31",
	})
	assert.ErrorIs(t, err, ErrNoHistoricalData)
}

func TestHistoricalPrice_BadRange(t *testing.T) {
	provider := new(mockProvider)
	handler := stockHandler(t, provider, HistoricalPriceTool)

	_, err := handler(context.Background(), map[string]any{
		"symbol":     "AAPL",
		"start_date": "2024-02-01",
		"end_date":   "2024-01-01",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_date must be after start_date")
	provider.AssertNotCalled(t, "HistoricalPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoricalPrice_SchemaRejectsBadDate(t *testing.T) {
	r, err := NewStockRegistry(new(mockProvider))
	require.NoError(t, err)

	err = r.Validate(HistoricalPriceTool, map[string]any{
		"symbol":     "AAPL",
		"start_date": "last tuesday",
		"end_date":   "2024-01-01",
	})
	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonInvalidArguments, rej.Reason)
}
