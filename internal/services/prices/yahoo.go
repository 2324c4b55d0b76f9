package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	xhttp "LunarPull/pkg/http"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/util"
)

// YahooClient reads daily bars from the Yahoo Finance chart API.
type YahooClient struct {
	baseURL  string
	client   *xhttp.Client
	validate *validator.Validate
	log      *applogger.Logger
}

// NewYahooClient builds a client for baseURL (".../v8/finance/chart").
func NewYahooClient(baseURL string, client *xhttp.Client, log *applogger.Logger) *YahooClient {
	if log == nil {
		log = applogger.NewNop()
	}
	return &YahooClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		validate: validator.New(),
		log:      log,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol           string `json:"symbol"`
		ExchangeTimezone string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchPrices returns validated daily bars for [start, end], sorted by date.
// Bars with missing values or failing validation are dropped and logged.
func (y *YahooClient) FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error) {
	op := "yahoo chart " + symbol
	start, end = util.DateOf(start), util.DateOf(end)

	var body []byte
	err := y.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    y.baseURL + "/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(start.Unix(), 10)},
			"period2":  {strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)},
			"interval": {"1d"},
			"events":   {"history"},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, apperr.Transport(op, fmt.Errorf("status %d", se.Code))
		}
		return nil, apperr.Transport(op, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Schema(op, err)
	}
	if resp.Chart.Error != nil {
		return nil, apperr.Schemaf(op, "%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, apperr.Schemaf(op, "empty result")
	}

	points, rejected, err := y.decode(symbol, resp.Chart.Result[0], start, end)
	if err != nil {
		return nil, apperr.Schema(op, err)
	}
	if rejected > 0 {
		y.log.Warn("price rows rejected",
			applogger.String("symbol", symbol),
			applogger.Int("rejected", rejected),
			applogger.Int("kept", len(points)),
		)
	}
	return points, nil
}

func (y *YahooClient) decode(symbol string, r chartResult, start, end time.Time) ([]models.PricePoint, int, error) {
	if len(r.Indicators.Quote) == 0 {
		return nil, 0, fmt.Errorf("missing quote indicators")
	}
	q := r.Indicators.Quote[0]
	n := len(r.Timestamp)
	if len(q.Close) != n || len(q.Open) != n || len(q.High) != n || len(q.Low) != n || len(q.Volume) != n {
		return nil, 0, fmt.Errorf("quote arrays do not match %d timestamps", n)
	}
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
		if len(adj) != n {
			return nil, 0, fmt.Errorf("adjclose array does not match %d timestamps", n)
		}
	}

	loc := time.UTC
	if tz := r.Meta.ExchangeTimezone; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	out := make([]models.PricePoint, 0, n)
	seen := make(map[string]bool, n)
	rejected := 0
	for i, ts := range r.Timestamp {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil || q.Volume[i] == nil {
			rejected++
			continue
		}
		// the bar's civil date on the exchange
		d := util.DateOf(time.Unix(ts, 0).In(loc))
		if d.Before(start) || d.After(end) || seen[util.DayKey(d)] {
			continue
		}
		p := models.PricePoint{
			Symbol:   symbol,
			Date:     d,
			Open:     *q.Open[i],
			High:     *q.High[i],
			Low:      *q.Low[i],
			Close:    *q.Close[i],
			AdjClose: *q.Close[i],
			Volume:   *q.Volume[i],
		}
		if adj != nil && adj[i] != nil {
			p.AdjClose = *adj[i]
		}
		if err := y.validate.Struct(p); err != nil {
			rejected++
			continue
		}
		seen[util.DayKey(d)] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, rejected, nil
}

var _ domrepo.PriceSource = (*YahooClient)(nil)
