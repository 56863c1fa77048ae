package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"tradeloop/internal/domain"
	"tradeloop/internal/observability"
)

// HTTPClient fetches daily bars, earnings dates and last prices from a
// chart-style JSON API. Requests pass through a shared rate limiter so
// parallel screening batches stay under the provider's quota.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a client for the given API base URL. ratePerMin
// caps outbound requests per minute.
func NewHTTPClient(baseURL string, ratePerMin int, timeout time.Duration) *HTTPClient {
	if ratePerMin < 1 {
		ratePerMin = 60
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), 1),
	}
}

// chartResponse is the provider's daily chart payload.
type chartResponse struct {
	Bars []struct {
		Timestamp int64   `json:"timestamp"` // unix seconds
		Open      float64 `json:"open"`
		High      float64 `json:"high"`
		Low       float64 `json:"low"`
		Close     float64 `json:"close"`
		AdjClose  float64 `json:"adj_close"`
		Volume    float64 `json:"volume"`
	} `json:"bars"`
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// earningsResponse is the provider's earnings calendar payload.
type earningsResponse struct {
	Next *struct {
		Date string `json:"date"` // YYYY-MM-DD
	} `json:"next"`
}

// quoteResponse is the provider's last-trade payload.
type quoteResponse struct {
	Price float64 `json:"price"`
}

// DailyBars implements HistorySource.
func (c *HTTPClient) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	u := fmt.Sprintf("%s/v1/chart/%s?interval=1d&from=%d&to=%d",
		c.baseURL, url.PathEscape(ticker), start.Unix(), end.Unix())

	var chart chartResponse
	if err := c.getJSON(ctx, "chart", u, &chart); err != nil {
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}
	if chart.Error != nil {
		return nil, fmt.Errorf("chart %s: api error %s: %s", ticker, chart.Error.Code, chart.Error.Description)
	}

	bars := make([]domain.Bar, 0, len(chart.Bars))
	lastDay := dayStart(end)
	for _, b := range chart.Bars {
		// Null bars show up zeroed on exchange holidays.
		if b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0 {
			continue
		}
		// Providers treat the range inclusively; the interval here is
		// half-open, so a bar on end's day is dropped.
		if !time.Unix(b.Timestamp, 0).UTC().Before(lastDay) {
			continue
		}
		adj := b.AdjClose
		if adj == 0 {
			adj = b.Close
		}
		bars = append(bars, domain.Bar{
			Date:     time.Unix(b.Timestamp, 0).UTC(),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: adj,
			Volume:   b.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// NextEarnings implements EarningsSource.
func (c *HTTPClient) NextEarnings(ctx context.Context, ticker string) (time.Time, bool, error) {
	u := fmt.Sprintf("%s/v1/earnings/%s", c.baseURL, url.PathEscape(ticker))

	var resp earningsResponse
	if err := c.getJSON(ctx, "earnings", u, &resp); err != nil {
		return time.Time{}, false, fmt.Errorf("earnings %s: %w", ticker, err)
	}
	if resp.Next == nil {
		return time.Time{}, false, nil
	}
	when, err := time.Parse("2006-01-02", resp.Next.Date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("earnings %s: parse date %q: %w", ticker, resp.Next.Date, err)
	}
	return when, true, nil
}

// LastPrice implements QuoteSource.
func (c *HTTPClient) LastPrice(ctx context.Context, ticker string) (float64, error) {
	u := fmt.Sprintf("%s/v1/quote/%s", c.baseURL, url.PathEscape(ticker))

	var resp quoteResponse
	if err := c.getJSON(ctx, "quote", u, &resp); err != nil {
		return 0, fmt.Errorf("quote %s: %w", ticker, err)
	}
	if resp.Price <= 0 {
		return 0, fmt.Errorf("quote %s: no price data", ticker)
	}
	return resp.Price, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint, u string, out interface{}) (err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	started := time.Now()
	defer func() {
		observability.RecordProviderRequest(endpoint, time.Since(started).Seconds(), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ HistorySource  = (*HTTPClient)(nil)
	_ EarningsSource = (*HTTPClient)(nil)
	_ QuoteSource    = (*HTTPClient)(nil)
)
