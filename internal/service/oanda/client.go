package oanda

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
	sourceName = "oanda"
	pageSize   = 5000
)

// Client fetches midpoint candles from the OANDA v20 REST API.
type Client struct {
	baseURL     string
	token       string
	granularity string
	hc          *xhttp.Client
}

func New(baseURL, token, granularity string, hc *xhttp.Client) drepo.SourceAdapter {
	return &Client{
		baseURL:     baseURL,
		token:       token,
		granularity: granularity,
		hc:          hc,
	}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) PageSize() int { return pageSize }

// Step is one minute: candle timestamps sit on granularity boundaries, so a
// one minute nudge off the edge never lands on another candle.
func (c *Client) Step() time.Duration { return time.Minute }

type candle struct {
	Complete bool   `json:"complete"`
	Volume   int64  `json:"volume"`
	Time     string `json:"time"`
	Mid      struct {
		O string `json:"o"`
		H string `json:"h"`
		L string `json:"l"`
		C string `json:"c"`
	} `json:"mid"`
}

type candlesResponse struct {
	Candles      []candle `json:"candles"`
	ErrorMessage string   `json:"errorMessage"`
}

func (c *Client) Fetch(ctx context.Context, symbol string, win models.Window) ([]models.Observation, bool, error) {
	params := map[string]string{
		"granularity": c.granularity,
		"count":       strconv.Itoa(pageSize),
		"price":       "M",
	}
	if !win.From.IsZero() {
		params["from"] = win.From.UTC().Format(time.RFC3339)
	}
	if !win.To.IsZero() {
		params["to"] = win.To.UTC().Format(time.RFC3339)
		// The v20 API rejects from+to+count together.
		if !win.From.IsZero() {
			delete(params, "count")
		}
	}

	status, body, err := c.hc.Get(ctx, &xhttp.RequestOptions{
		URL: c.baseURL + "/v3/instruments/" + symbol + "/candles",
		Headers: map[string]string{
			"Authorization":          "Bearer " + c.token,
			"Accept-Datetime-Format": "RFC3339",
		},
		QueryParams: params,
	})
	if err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: "request failed", Err: err}
	}

	switch {
	case status == 401 || status == 403:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "authorization rejected"}
	case status == 404:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrNoData, Msg: "instrument not found: " + symbol}
	case status == 429:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrRateLimited, Msg: "throttled"}
	case status >= 500:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: fmt.Sprintf("upstream status %d", status)}
	}

	var resp candlesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "unexpected response shape", Err: err}
	}
	if resp.ErrorMessage != "" {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: resp.ErrorMessage}
	}

	obs := make([]models.Observation, 0, len(resp.Candles))
	for _, cd := range resp.Candles {
		// The newest candle is still forming; it would change on the next run.
		if !cd.Complete {
			continue
		}
		ts, err := time.Parse(time.RFC3339, cd.Time)
		if err != nil {
			continue
		}
		obs = append(obs, models.Observation{
			Datetime: util.FormatDateTime(ts),
			Open:     cd.Mid.O,
			High:     cd.Mid.H,
			Low:      cd.Mid.L,
			Close:    cd.Mid.C,
			Volume:   strconv.FormatInt(cd.Volume, 10),
		})
	}

	return obs, len(resp.Candles) < pageSize, nil
}
