package fred

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

const sourceName = "fred"

// Client fetches economic series observations from the FRED REST API.
// Series are daily or sparser and small enough that a single request covers
// the whole lookback; the adapter is unpaginated.
type Client struct {
	baseURL       string
	apiKey        string
	lookbackYears int
	hc            *xhttp.Client
	now           func() time.Time
}

func New(baseURL, apiKey string, lookbackYears int, hc *xhttp.Client) drepo.SourceAdapter {
	return &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		lookbackYears: lookbackYears,
		hc:            hc,
		now:           time.Now,
	}
}

func (c *Client) Name() string { return sourceName }

// PageSize zero marks the adapter unpaginated: one call returns everything.
func (c *Client) PageSize() int { return 0 }

func (c *Client) Step() time.Duration { return 24 * time.Hour }

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type observationsResponse struct {
	ErrorCode    int           `json:"error_code"`
	ErrorMessage string        `json:"error_message"`
	Observations []observation `json:"observations"`
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
		"series_id":         symbol,
		"api_key":           c.apiKey,
		"file_type":         "json",
		"observation_start": util.FormatDate(from),
		"observation_end":   util.FormatDate(to),
	}

	status, body, err := c.hc.Get(ctx, &xhttp.RequestOptions{
		URL:         c.baseURL + "/series/observations",
		QueryParams: params,
	})
	if err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: "request failed", Err: err}
	}

	switch {
	case status == 429:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrRateLimited, Msg: "throttled"}
	case status >= 500:
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: fmt.Sprintf("upstream status %d", status)}
	}

	var resp observationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "unexpected response shape", Err: err}
	}
	if status != 200 || resp.ErrorCode != 0 {
		kind := models.ErrFatal
		if resp.ErrorCode == 404 {
			kind = models.ErrNoData
		}
		return nil, false, &models.FetchError{Source: sourceName, Kind: kind, Msg: fmt.Sprintf("code %d: %s", resp.ErrorCode, resp.ErrorMessage)}
	}

	obs := make([]models.Observation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		// "." marks a gap in the series.
		if o.Value == "." || o.Value == "" {
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		val := v
		obs = append(obs, models.Observation{
			Datetime: o.Date,
			Value:    &val,
		})
	}

	return obs, true, nil
}
