// Package yahoo provides Yahoo Finance price providers: a JSON client for the
// chart and quote endpoints and a native client backed by go-yfinance.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	providerName = "yahoo"
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxErrorBody = 512
)

// Client is a Yahoo Finance API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:        log.With().Str("client", "yahoo").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []decimal.NullDecimal `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

// quoteResult holds the v7 quote fields we read. Absent fields decode as invalid.
type quoteResult struct {
	Symbol                     string              `json:"symbol"`
	LongName                   string              `json:"longName"`
	ShortName                  string              `json:"shortName"`
	FullExchangeName           string              `json:"fullExchangeName"`
	MarketState                string              `json:"marketState"`
	RegularMarketPrice         decimal.NullDecimal `json:"regularMarketPrice"`
	RegularMarketPreviousClose decimal.NullDecimal `json:"regularMarketPreviousClose"`
	MarketCap                  decimal.NullDecimal `json:"marketCap"`
	RegularMarketOpen          decimal.NullDecimal `json:"regularMarketOpen"`
	RegularMarketDayHigh       decimal.NullDecimal `json:"regularMarketDayHigh"`
	RegularMarketDayLow        decimal.NullDecimal `json:"regularMarketDayLow"`
	RegularMarketVolume        decimal.NullDecimal `json:"regularMarketVolume"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return e.Code + ": " + e.Description
}

// History fetches the bars overlapping [start, end] from the v8 chart endpoint.
// A zero start asks for the full history. Null closes (halted or incomplete
// bars) are skipped.
func (c *Client) History(ctx context.Context, ticker string, start, end time.Time, interval domain.Interval) ([]domain.PriceSample, error) {
	symbol := utils.NormalizeTicker(ticker)

	params := url.Values{}
	if start.IsZero() {
		params.Set("range", "max")
	} else {
		params.Set("period1", strconv.FormatInt(start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	}
	params.Set("interval", string(interval))
	params.Set("includePrePost", "false")
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	var resp chartResponse
	if err := c.getJSON(ctx, "history", reqURL, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, apiErrorToProvider("history", resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return []domain.PriceSample{}, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []domain.PriceSample{}, nil
	}
	closes := result.Indicators.Quote[0].Close

	samples := make([]domain.PriceSample, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || !closes[i].Valid {
			continue
		}
		samples = append(samples, domain.PriceSample{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     closes[i].Decimal,
		})
	}

	c.log.Debug().Str("ticker", symbol).Str("interval", string(interval)).Int("samples", len(samples)).Msg("Fetched chart")
	return domain.TrimToBars(samples, start, end, interval), nil
}

// CurrentInfo fetches a live snapshot from the v7 quote endpoint
func (c *Client) CurrentInfo(ctx context.Context, ticker string) (*domain.CurrentInfo, error) {
	symbol := utils.NormalizeTicker(ticker)

	params := url.Values{}
	params.Set("symbols", symbol)
	reqURL := c.baseURL + "/v7/finance/quote?" + params.Encode()

	var resp quoteResponse
	if err := c.getJSON(ctx, "quote", reqURL, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteResponse.Error != nil {
		return nil, apiErrorToProvider("quote", resp.QuoteResponse.Error)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, notFound("quote", symbol)
	}

	q := resp.QuoteResponse.Result[0]
	name := q.LongName
	if name == "" {
		name = q.ShortName
	}

	return &domain.CurrentInfo{
		FetchedAt:     time.Now(),
		Ticker:        symbol,
		Name:          name,
		Exchange:      q.FullExchangeName,
		MarketState:   q.MarketState,
		CurrentPrice:  positive(q.RegularMarketPrice),
		PreviousClose: positive(q.RegularMarketPreviousClose),
		MarketCap:     positive(q.MarketCap),
		Open:          positive(q.RegularMarketOpen),
		DayHigh:       positive(q.RegularMarketDayHigh),
		DayLow:        positive(q.RegularMarketDayLow),
		Volume:        positive(q.RegularMarketVolume),
	}, nil
}

// getJSON performs a rate-limited GET and decodes a 200 response into out.
// Every failure is returned as a classified *domain.ProviderError.
func (c *Client) getJSON(ctx context.Context, op, reqURL string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return domain.NewProviderError(providerName, op, fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindInternal, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Dur("elapsed", elapsed).Msg("Yahoo request failed")
		return domain.NewProviderError(providerName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return notFound(op, req.URL.Path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo non-OK response")
		return domain.NewHTTPError(providerName, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindMalformed, Err: err}
	}
	return nil
}

func notFound(op, what string) error {
	return &domain.ProviderError{
		Provider: providerName,
		Op:       op,
		Kind:     domain.KindNotFound,
		Err:      fmt.Errorf("%w: %s", domain.ErrTickerNotFound, what),
	}
}

func apiErrorToProvider(op string, e *apiError) error {
	if strings.EqualFold(e.Code, "Not Found") {
		return notFound(op, e.Description)
	}
	return &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindMalformed, Err: e}
}

// positive treats zero and negative provider values as not supplied
func positive(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid || !d.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return d
}

var _ domain.PriceProvider = (*Client)(nil)
