// Package apininjas provides a client for the API Ninjas S&P 500 constituent list
package apininjas

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.api-ninjas.com/v1"
	DefaultTimeout = 30 * time.Second

	providerName = "apininjas"
)

// excludedTickers are listed by the provider but have no usable price data
var excludedTickers = map[string]struct{}{
	"WBA":   {},
	"PARA":  {},
	"IPG":   {},
	"BRK.B": {},
	"BF.B":  {},
	"k":     {},
	"GOOG":  {},
	"FOXA":  {},
}

// Client fetches index constituents from API Ninjas
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new API Ninjas client
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "apininjas").Logger(),
	}
}

type constituent struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector"`
}

// SP500Constituents returns the current S&P 500 members, minus excluded tickers
func (c *Client) SP500Constituents(ctx context.Context) ([]domain.Constituent, error) {
	const op = "sp500"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sp500", nil)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindInternal, Err: err}
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.log.Info().Msg("Fetching S&P 500 constituents")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(providerName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error().Int("status", resp.StatusCode).Msg("API Ninjas HTTP error")
		return nil, domain.NewHTTPError(providerName, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []constituent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Op: op, Kind: domain.KindMalformed, Err: err}
	}

	out := make([]domain.Constituent, 0, len(raw))
	for _, s := range raw {
		if _, skip := excludedTickers[s.Ticker]; skip || s.Ticker == "" {
			continue
		}
		out = append(out, domain.Constituent{Ticker: s.Ticker, Name: s.CompanyName, Sector: s.Sector})
	}

	c.log.Info().Int("count", len(out)).Int("excluded", len(raw)-len(out)).Msg("Fetched S&P 500 constituents")
	return out, nil
}

var _ domain.ConstituentSource = (*Client)(nil)
