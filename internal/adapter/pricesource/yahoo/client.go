// Package yahoo reads daily bars from the Yahoo Finance chart API, either
// directly or through a pass-through proxy such as allorigins.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/networth-backend/internal/domain"
)

const (
	DefaultBaseURL  = "https://query1.finance.yahoo.com"
	DefaultProxyURL = "https://api.allorigins.win/raw?url="

	userAgent = "Mozilla/5.0"
)

var ErrNoData = errors.New("yahoo: no price data")

// Client implements domain.PriceSource against the chart API
type Client struct {
	HTTP     *http.Client
	BaseURL  string
	ProxyURL string // prefix the escaped chart URL is appended to; empty for direct access
	name     string
}

// NewClient creates a client that calls the chart API directly
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		name:    "yahoo",
	}
}

// NewProxiedClient creates a client that reaches the chart API through proxyURL
func NewProxiedClient(baseURL, proxyURL string, timeout time.Duration) *Client {
	c := NewClient(baseURL, timeout)
	c.ProxyURL = proxyURL
	c.name = "yahoo-proxy"
	return c
}

func (c *Client) Name() string { return c.name }

// chart is the response structure of the chart API. Prices are kept as
// json.Number so no precision is lost before they become decimals, and as
// pointers because the API reports missing bars as null.
type chart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *json.Number `json:"regularMarketPrice"`
				PreviousClose      *json.Number `json:"previousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*json.Number `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// HistoricalBars returns the daily bars of ticker between from and to
func (c *Client) HistoricalBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", "1d")

	res, err := c.fetchChart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}
	if len(res.Bars) == 0 {
		return nil, ErrNoData
	}
	return res.Bars, nil
}

// Latest returns today's bar together with the exchange metadata
func (c *Client) Latest(ctx context.Context, ticker string) (*domain.LatestQuote, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "1d")
	return c.fetchChart(ctx, ticker, q)
}

// ChartURL returns the URL requested for ticker with the given query,
// wrapped in the proxy prefix when one is set
func (c *Client) ChartURL(ticker string, q url.Values) string {
	target := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.BaseURL, url.PathEscape(domain.NormalizeTicker(ticker)), q.Encode())
	if c.ProxyURL == "" {
		return target
	}
	return c.ProxyURL + url.QueryEscape(target)
}

func (c *Client) fetchChart(ctx context.Context, ticker string, q url.Values) (*domain.LatestQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ChartURL(ticker, q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", c.name, resp.StatusCode)
	}

	var data chart
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.name, err)
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("%s api error: %s", c.name, data.Chart.Error.Description)
	}
	if len(data.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: invalid response", c.name)
	}

	result := data.Chart.Result[0]
	quote := &domain.LatestQuote{}
	if quote.RegularMarketPrice, err = toDecimal(result.Meta.RegularMarketPrice); err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.name, err)
	}
	if quote.PreviousClose, err = toDecimal(result.Meta.PreviousClose); err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.name, err)
	}

	var closes []*json.Number
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	quote.Bars = make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := domain.Bar{Time: time.Unix(ts, 0).UTC()}
		if i < len(closes) {
			if bar.Close, err = toDecimal(closes[i]); err != nil {
				return nil, fmt.Errorf("%s decode: %w", c.name, err)
			}
		}
		quote.Bars = append(quote.Bars, bar)
	}
	return quote, nil
}

func toDecimal(n *json.Number) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, err
	}
	return &d, nil
}
