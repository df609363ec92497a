package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
	xhttp "HistPull/pkg/http"
	"HistPull/pkg/util"
)

const (
	sourceName = "binance"
	pageSize   = 1000
)

// Client fetches historical klines from the Binance spot REST API.
// Pagination is millisecond-keyed: pages move backward through endTime and
// forward through startTime.
type Client struct {
	baseURL    string
	interval   string
	quoteAsset string
	hc         *xhttp.Client
}

// New creates a Binance klines adapter. Symbols are bare base assets (BTC,
// ETH); the quote asset is appended to form the trading pair.
func New(baseURL, interval, quoteAsset string, hc *xhttp.Client) drepo.SourceAdapter {
	return &Client{
		baseURL:    baseURL,
		interval:   interval,
		quoteAsset: quoteAsset,
		hc:         hc,
	}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) PageSize() int { return pageSize }

// Step is one millisecond: kline boundaries are epoch-millisecond keyed, so
// adjacent windows abut at +-1ms of the edge candle's open time.
func (c *Client) Step() time.Duration { return time.Millisecond }

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) Fetch(ctx context.Context, symbol string, win models.Window) ([]models.Observation, bool, error) {
	params := map[string]string{
		"symbol":   symbol + c.quoteAsset,
		"interval": c.interval,
		"limit":    strconv.Itoa(pageSize),
	}
	if !win.From.IsZero() {
		params["startTime"] = strconv.FormatInt(win.From.UnixMilli(), 10)
	}
	if !win.To.IsZero() {
		params["endTime"] = strconv.FormatInt(win.To.UnixMilli(), 10)
	}

	status, body, err := c.hc.Get(ctx, &xhttp.RequestOptions{
		URL:         c.baseURL + "/api/v3/klines",
		QueryParams: params,
	})
	if err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: "request failed", Err: err}
	}

	switch {
	case status == 429 || status == 418:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrRateLimited, Msg: "throttled by exchange"}
	case status >= 500:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: fmt.Sprintf("upstream status %d", status)}
	case status != 200:
		var e apiError
		_ = json.Unmarshal(body, &e)
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: fmt.Sprintf("code %d: %s", e.Code, e.Msg)}
	}

	// A 200 body is either an array of klines or an error envelope.
	if len(body) > 0 && body[0] == '{' {
		var e apiError
		_ = json.Unmarshal(body, &e)
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: fmt.Sprintf("code %d: %s", e.Code, e.Msg)}
	}

	// Kline rows: [openTimeMs, open, high, low, close, volume, closeTimeMs, ...]
	var rows [][]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "unexpected response shape", Err: err}
	}

	obs := make([]models.Observation, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openTime, ok := row[0].(float64)
		if !ok {
			continue
		}
		obs = append(obs, models.Observation{
			Datetime: util.FormatDateTime(time.UnixMilli(int64(openTime))),
			Open:     fieldString(row[1]),
			High:     fieldString(row[2]),
			Low:      fieldString(row[3]),
			Close:    fieldString(row[4]),
			Volume:   fieldString(row[5]),
		})
	}

	return obs, len(rows) < pageSize, nil
}

func fieldString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
