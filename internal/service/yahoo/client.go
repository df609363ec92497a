package yahoo

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

const sourceName = "yahoo"

// Client fetches daily bars from the Yahoo Finance chart endpoint. Daily
// history fits in one response, so the adapter is unpaginated.
type Client struct {
	baseURL       string
	interval      string
	lookbackYears int
	hc            *xhttp.Client
	now           func() time.Time
}

func New(baseURL, interval string, lookbackYears int, hc *xhttp.Client) drepo.SourceAdapter {
	return &Client{
		baseURL:       baseURL,
		interval:      interval,
		lookbackYears: lookbackYears,
		hc:            hc,
		now:           time.Now,
	}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) PageSize() int { return 0 }

func (c *Client) Step() time.Duration { return 24 * time.Hour }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) Fetch(ctx context.Context, symbol string, win models.Window) ([]models.Observation, bool, error) {
	from := win.From
	if from.IsZero() {
		from = c.now().AddDate(-c.lookbackYears, 0, 0)
	}
	to := win.To
	if to.IsZero() {
		to = c.now()
	}

	params := map[string]string{
		"period1":  strconv.FormatInt(from.Unix(), 10),
		"period2":  strconv.FormatInt(to.Unix(), 10),
		"interval": c.interval,
		"events":   "history",
	}

	status, body, err := c.hc.Get(ctx, &xhttp.RequestOptions{
		URL:         c.baseURL + "/v8/finance/chart/" + symbol,
		QueryParams: params,
		Headers:     map[string]string{"User-Agent": "Mozilla/5.0"},
	})
	if err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: "request failed", Err: err}
	}

	switch {
	case status == 404:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrNoData, Msg: "symbol not found: " + symbol}
	case status == 429:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrRateLimited, Msg: "throttled"}
	case status == 401 || status == 403:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "request rejected"}
	case status >= 500:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: fmt.Sprintf("upstream status %d", status)}
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "unexpected response shape", Err: err}
	}
	if resp.Chart.Error != nil {
		kind := models.ErrFatal
		if resp.Chart.Error.Code == "Not Found" {
			kind = models.ErrNoData
		}
		return nil, false, &models.FetchError{Source: sourceName, Kind: kind, Msg: resp.Chart.Error.Description}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, true, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, true, nil
	}
	quote := result.Indicators.Quote[0]

	obs := make([]models.Observation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Null slots mark halted or missing sessions.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		o := models.Observation{
			Datetime: util.FormatDate(time.Unix(ts, 0)),
			Close:    formatFloat(quote.Close[i]),
		}
		if i < len(quote.Open) {
			o.Open = formatFloat(quote.Open[i])
		}
		if i < len(quote.High) {
			o.High = formatFloat(quote.High[i])
		}
		if i < len(quote.Low) {
			o.Low = formatFloat(quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			o.Volume = strconv.FormatInt(*quote.Volume[i], 10)
		}
		obs = append(obs, o)
	}

	return obs, true, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
