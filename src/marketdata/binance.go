package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	logger "github.com/sirupsen/logrus"
)

// BinanceProvider serves crypto bars through the Binance public kline API.
// Symbols are written "BTC_USDT" (base and quote separated by underscore).
type BinanceProvider struct {
	exchange goex.API
}

func NewBinanceProvider() *BinanceProvider {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &BinanceProvider{exchange: binance.NewWithConfig(apiConfig)}
}

// WithExchange overrides the underlying exchange client. Useful for tests.
func (p *BinanceProvider) WithExchange(api goex.API) *BinanceProvider {
	return &BinanceProvider{exchange: api}
}

func (p *BinanceProvider) Bars(ctx context.Context, symbol, timeframe string, lookback int) ([]Bar, error) {
	pair, err := parsePair(symbol)
	if err != nil {
		return nil, err
	}

	period, err := klinePeriod(timeframe)
	if err != nil {
		return nil, err
	}

	klines, err := p.exchange.GetKlineRecords(pair, period, lookback)
	if err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Warn("binance kline fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if len(klines) == 0 {
		return nil, fmt.Errorf("%w: no klines returned for %s", ErrDataUnavailable, symbol)
	}

	bars := make([]Bar, 0, len(klines))
	for i := range klines {
		k := klines[i]
		bars = append(bars, Bar{
			Time:   time.Unix(k.Timestamp, 0).UTC(),
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Vol,
		})
	}

	// Some exchanges return klines newest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	return bars, nil
}

func parsePair(symbol string) (goex.CurrencyPair, error) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return goex.CurrencyPair{}, fmt.Errorf("invalid crypto symbol %q, want BASE_QUOTE", symbol)
	}
	return goex.NewCurrencyPair(
		goex.Currency{Symbol: strings.ToUpper(parts[0])},
		goex.Currency{Symbol: strings.ToUpper(parts[1])},
	), nil
}

func klinePeriod(timeframe string) (goex.KlinePeriod, error) {
	switch timeframe {
	case "1m":
		return goex.KLINE_PERIOD_1MIN, nil
	case "1h":
		return goex.KLINE_PERIOD_1H, nil
	case "4h":
		return goex.KLINE_PERIOD_4H, nil
	case "1d":
		return goex.KLINE_PERIOD_1DAY, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}
