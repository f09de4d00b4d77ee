package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// DefaultYahooBaseURL is the public Yahoo Finance query host
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

	maxResponseBytes = 4 << 20
)

// YahooConfig configures the Yahoo chart client
type YahooConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// YahooClient reads prices from the Yahoo Finance chart API
type YahooClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    zerolog.Logger
}

// NewYahooClient creates a Yahoo chart client
func NewYahooClient(cfg YahooConfig, logger zerolog.Logger) *YahooClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &YahooClient{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "marketdata").Logger(),
	}
}

// CurrentPrice returns the last close of the current trading day
func (c *YahooClient) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	chart, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return 0, err
	}

	closes := chart.Get("indicators.quote.0.close").Array()
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].Type == gjson.Number {
			return closes[i].Float(), nil
		}
	}

	if price := chart.Get("meta.regularMarketPrice"); price.Exists() {
		return price.Float(), nil
	}

	return 0, fmt.Errorf("%s: %w", symbol, ErrNoData)
}

// HistoricalPrices returns daily closes between start (inclusive) and end (exclusive)
func (c *YahooClient) HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) (Series, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("interval", "1d")

	chart, err := c.fetchChart(ctx, symbol, params)
	if err != nil {
		return Series{}, err
	}

	series := Series{Symbol: strings.ToUpper(symbol)}
	timestamps := chart.Get("timestamp").Array()
	closes := chart.Get("indicators.quote.0.close").Array()

	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type != gjson.Number {
			continue
		}
		t := time.Unix(ts.Int(), 0).UTC()
		if t.Before(start) || !t.Before(end) {
			continue
		}
		series.Points = append(series.Points, PricePoint{Time: t, Close: closes[i].Float()})
	}

	return series, nil
}

// fetchChart performs the chart request and returns chart.result[0]
func (c *YahooClient) fetchChart(ctx context.Context, symbol string, params url.Values) (gjson.Result, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return gjson.Result{}, fmt.Errorf("empty symbol: %w", ErrUnknownSymbol)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("chart request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read chart response: %w", err)
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Chart request completed")

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("chart request returned status %d with invalid body", resp.StatusCode)
	}

	doc := gjson.ParseBytes(body)
	if chartErr := doc.Get("chart.error"); chartErr.Exists() && chartErr.Type != gjson.Null {
		desc := chartErr.Get("description").String()
		if resp.StatusCode == http.StatusNotFound || chartErr.Get("code").String() == "Not Found" {
			return gjson.Result{}, fmt.Errorf("%s: %s: %w", symbol, desc, ErrUnknownSymbol)
		}
		return gjson.Result{}, fmt.Errorf("chart error for %s: %s", symbol, desc)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("chart request returned status %d", resp.StatusCode)
	}

	result := doc.Get("chart.result.0")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	return result, nil
}
