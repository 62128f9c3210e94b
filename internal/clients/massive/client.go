// Package massive provides a client for the Massive reference tickers API.
// Listings are paginated through next_url links.
package massive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL   = "https://api.massive.com/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultPageDelay = 30 * time.Second
	pageLimit        = 1000

	providerName = "massive"
)

// exchangeCodes maps the exchange names the API accepts to MIC codes
var exchangeCodes = map[string]string{
	"nyse":   "XNYS",
	"nasdaq": "XNAS",
}

// Client lists exchange tickers
type Client struct {
	baseURL    string
	apiKey     string
	pageDelay  time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// Config holds client settings. Zero values use the defaults.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	PageDelay time.Duration
}

// NewClient creates a new Massive client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		pageDelay:  cfg.PageDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With().Str("client", "massive").Logger(),
	}
}

type tickersPage struct {
	Results []struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

// ExchangeTickers returns every ticker listed on exchange ("nyse" or "nasdaq").
// Pages after the first are fetched pageDelay apart to respect the API rate limit.
func (c *Client) ExchangeTickers(ctx context.Context, exchange string) ([]domain.ListedTicker, error) {
	exchange = strings.ToLower(strings.TrimSpace(exchange))
	code, ok := exchangeCodes[exchange]
	if !ok {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Op:       "tickers",
			Kind:     domain.KindInvalid,
			Err:      fmt.Errorf("unsupported exchange %q", exchange),
		}
	}

	params := url.Values{}
	params.Set("market", "stocks")
	params.Set("exchange", code)
	params.Set("limit", fmt.Sprintf("%d", pageLimit))
	params.Set("apiKey", c.apiKey)
	next := c.baseURL + "/reference/tickers?" + params.Encode()

	label := strings.ToUpper(exchange)
	tickers := []domain.ListedTicker{}
	for page := 0; next != ""; page++ {
		if page > 0 {
			if err := c.wait(ctx); err != nil {
				return nil, domain.NewProviderError(providerName, "tickers", err)
			}
			next = withAPIKey(next, c.apiKey)
		}

		var body tickersPage
		if err := c.getJSON(ctx, next, &body); err != nil {
			c.log.Error().Err(err).Str("exchange", exchange).Int("page", page).Msg("Failed to fetch tickers page")
			return nil, err
		}
		for _, r := range body.Results {
			tickers = append(tickers, domain.ListedTicker{Ticker: r.Ticker, Name: r.Name, Exchange: label})
		}
		next = body.NextURL
		c.log.Debug().Str("exchange", exchange).Int("page", page).Bool("more", next != "").Msg("Fetched tickers page")
	}

	c.log.Info().Str("exchange", exchange).Int("count", len(tickers)).Msg("Fetched exchange tickers")
	return tickers, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.pageDelay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.pageDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withAPIKey appends the key to a next_url, which the API returns without it
func withAPIKey(next, key string) string {
	sep := "&"
	if !strings.Contains(next, "?") {
		sep = "?"
	}
	return next + sep + "apiKey=" + url.QueryEscape(key)
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	const op = "tickers"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindInternal, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewProviderError(providerName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewHTTPError(providerName, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindMalformed, Err: err}
	}
	return nil
}

var _ domain.TickerDirectory = (*Client)(nil)
