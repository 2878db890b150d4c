package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// HTTPProvider serves bars from a REST bars API (Alpaca-compatible shape).
// Credentials are optional; public/sandbox endpoints work without them.
type HTTPProvider struct {
	http    *resty.Client
	baseURL string
}

type httpBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

type httpBarsResponse struct {
	Bars    []httpBar `json:"bars"`
	Symbol  string    `json:"symbol"`
	Message string    `json:"message,omitempty"`
}

func NewHTTPProvider(baseURL, apiKey, apiSecret string) *HTTPProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	if apiKey != "" {
		client.SetHeader("APCA-API-KEY-ID", apiKey)
		client.SetHeader("APCA-API-SECRET-KEY", apiSecret)
	}

	return &HTTPProvider{http: client, baseURL: baseURL}
}

func (p *HTTPProvider) Bars(ctx context.Context, symbol, timeframe string, lookback int) ([]Bar, error) {
	apiTimeframe, err := httpTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	var payload httpBarsResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe": apiTimeframe,
			"limit":     fmt.Sprintf("%d", lookback),
		}).
		SetResult(&payload).
		Get(fmt.Sprintf("/v2/stocks/%s/bars", symbol))
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Warn("bars request failed")
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if resp.IsError() {
		logger.WithFields(logger.Fields{
			"symbol": symbol,
			"status": resp.StatusCode(),
			"body":   resp.String(),
		}).Warn("bars request rejected")
		return nil, fmt.Errorf("%w: bars API returned status %d", ErrDataUnavailable, resp.StatusCode())
	}

	if len(payload.Bars) == 0 {
		return nil, fmt.Errorf("%w: no bars returned for %s", ErrDataUnavailable, symbol)
	}

	bars := make([]Bar, 0, len(payload.Bars))
	for _, b := range payload.Bars {
		bars = append(bars, Bar{
			Time:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars, nil
}

func httpTimeframe(timeframe string) (string, error) {
	switch timeframe {
	case "1m":
		return "1Min", nil
	case "1h":
		return "1Hour", nil
	case "4h":
		return "4Hour", nil
	case "1d":
		return "1Day", nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}
