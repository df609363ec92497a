package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
	xhttp "HistPull/pkg/http"
	"HistPull/pkg/util"
)

const sourceName = "twelvedata"

// quotaBackoff is the hint attached to credit-exhaustion errors; the vendor
// meters credits per minute so waiting just under one is enough.
const quotaBackoff = 58 * time.Second

// Client fetches bar series from the Twelve Data /time_series endpoint.
// The vendor returns bars newest first; Fetch reverses them so every adapter
// hands out ascending pages.
type Client struct {
	baseURL    string
	apiKey     string
	interval   string
	outputSize int
	step       time.Duration
	hc         *xhttp.Client
}

func New(baseURL, apiKey, interval string, outputSize int, hc *xhttp.Client) drepo.SourceAdapter {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		interval:   interval,
		outputSize: outputSize,
		step:       parseInterval(interval),
		hc:         hc,
	}
}

func (c *Client) Name() string { return sourceName }

func (c *Client) PageSize() int { return c.outputSize }

func (c *Client) Step() time.Duration { return c.step }

// parseInterval maps vendor interval tokens ("30min", "1h", "1day") to a
// duration used when nudging window edges past a known bar.
func parseInterval(interval string) time.Duration {
	switch {
	case strings.HasSuffix(interval, "min"):
		n, err := strconv.Atoi(strings.TrimSuffix(interval, "min"))
		if err == nil {
			return time.Duration(n) * time.Minute
		}
	case strings.HasSuffix(interval, "h"):
		n, err := strconv.Atoi(strings.TrimSuffix(interval, "h"))
		if err == nil {
			return time.Duration(n) * time.Hour
		}
	case strings.HasSuffix(interval, "day"):
		n, err := strconv.Atoi(strings.TrimSuffix(interval, "day"))
		if err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	case strings.HasSuffix(interval, "week"):
		n, err := strconv.Atoi(strings.TrimSuffix(interval, "week"))
		if err == nil {
			return time.Duration(n) * 7 * 24 * time.Hour
		}
	}
	return 30 * time.Minute
}

type barValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type seriesResponse struct {
	Status  string     `json:"status"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Values  []barValue `json:"values"`
}

func (c *Client) Fetch(ctx context.Context, symbol string, win models.Window) ([]models.Observation, bool, error) {
	params := map[string]string{
		"apikey":     c.apiKey,
		"symbol":     symbol,
		"interval":   c.interval,
		"outputsize": strconv.Itoa(c.outputSize),
		"format":     "JSON",
	}
	if !win.From.IsZero() {
		params["start_date"] = util.FormatDateTime(win.From)
	}
	if !win.To.IsZero() {
		params["end_date"] = util.FormatDateTime(win.To)
	}

	status, body, err := c.hc.Get(ctx, &xhttp.RequestOptions{
		URL:         c.baseURL + "/time_series",
		QueryParams: params,
	})
	if err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: "request failed", Err: err}
	}
	if status >= 500 {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrTransient, Msg: fmt.Sprintf("upstream status %d", status)}
	}

	// Errors arrive as a 200 envelope with status=error and a vendor code.
	var resp seriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: "unexpected response shape", Err: err}
	}
	if resp.Status == "error" {
		switch resp.Code {
		case 429:
			return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrRateLimited, Msg: resp.Message, RetryAfter: quotaBackoff}
		case 400, 404:
			return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrNoData, Msg: resp.Message}
		case 401, 403:
			return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: resp.Message}
		default:
			return nil, false, &models.FetchError{Source: sourceName, Kind: models.ErrFatal, Msg: fmt.Sprintf("code %d: %s", resp.Code, resp.Message)}
		}
	}

	obs := make([]models.Observation, 0, len(resp.Values))
	for i := len(resp.Values) - 1; i >= 0; i-- {
		v := resp.Values[i]
		obs = append(obs, models.Observation{
			Datetime: v.Datetime,
			Open:     v.Open,
			High:     v.High,
			Low:      v.Low,
			Close:    v.Close,
			Volume:   v.Volume,
		})
	}

	return obs, len(resp.Values) < c.outputSize, nil
}
