package lunar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	"LunarPull/internal/service/cache"
	xhttp "LunarPull/pkg/http"
	applogger "LunarPull/pkg/logger"
)

// USNOClient fetches yearly phase-events from the USNO astronomical API.
type USNOClient struct {
	baseURL  string
	client   *xhttp.Client
	cache    cache.BytesCache
	cacheTTL time.Duration
	log      *applogger.Logger
}

// USNOOption configures USNOClient.
type USNOOption func(*USNOClient)

// WithCache stores successful year payloads in c for ttl.
func WithCache(c cache.BytesCache, ttl time.Duration) USNOOption {
	return func(u *USNOClient) {
		u.cache = c
		u.cacheTTL = ttl
	}
}

// WithLogger sets the client logger.
func WithLogger(l *applogger.Logger) USNOOption {
	return func(u *USNOClient) {
		u.log = l
	}
}

// NewUSNOClient builds a client for baseURL (".../api/moon/phases/year").
// The HTTP client carries the per-call timeout and rate limit.
func NewUSNOClient(baseURL string, client *xhttp.Client, opts ...USNOOption) *USNOClient {
	u := &USNOClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type usnoResponse struct {
	PhaseData *[]usnoPhase `json:"phasedata"`
}

type usnoPhase struct {
	Date  string `json:"date"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Phase string `json:"phase"`
}

func cacheKey(year int) string { return fmt.Sprintf("usno:phases:%d", year) }

// FetchYear returns the phase-events of one calendar year.
func (u *USNOClient) FetchYear(ctx context.Context, year int) ([]models.PhaseEvent, error) {
	op := fmt.Sprintf("usno year %d", year)

	if u.cache != nil {
		b, ok, err := u.cache.GetBytes(ctx, cacheKey(year))
		if err != nil {
			u.log.Warn("phase cache read failed", applogger.Int("year", year), applogger.Error(err))
		} else if ok {
			if events, derr := decodeYear(op, b); derr == nil {
				u.log.Debug("phase events served from cache", applogger.Int("year", year))
				return events, nil
			}
		}
	}

	var body []byte
	err := u.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/%d", u.baseURL, year),
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, apperr.Transport(op, fmt.Errorf("status %d", se.Code))
		}
		return nil, apperr.Transport(op, err)
	}

	events, err := decodeYear(op, body)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		if err := u.cache.SetBytes(ctx, cacheKey(year), body, u.cacheTTL); err != nil {
			u.log.Warn("phase cache write failed", applogger.Int("year", year), applogger.Error(err))
		}
	}
	return events, nil
}

func decodeYear(op string, body []byte) ([]models.PhaseEvent, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, apperr.Schemaf(op, "empty body")
	}
	var resp usnoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Schema(op, err)
	}
	if resp.PhaseData == nil {
		return nil, apperr.Schemaf(op, "missing phasedata")
	}
	if len(*resp.PhaseData) == 0 {
		return nil, apperr.Schemaf(op, "no phase events")
	}

	events := make([]models.PhaseEvent, 0, len(*resp.PhaseData))
	for i, p := range *resp.PhaseData {
		date, err := p.date()
		if err != nil {
			return nil, apperr.Schemaf(op, "entry %d: %v", i, err)
		}
		phase, err := models.ParsePhase(p.Phase)
		if err != nil {
			return nil, apperr.Schemaf(op, "entry %d: %v", i, err)
		}
		events = append(events, models.PhaseEvent{Date: date, Phase: phase})
	}
	return events, nil
}

var usnoDateLayouts = []string{"2006-01-02", "2006 Jan 2", "2006 Jan 02", "2006 January 2"}

func (p usnoPhase) date() (time.Time, error) {
	if p.Date != "" {
		for _, layout := range usnoDateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(p.Date)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", p.Date)
	}
	if p.Year == 0 || p.Month < 1 || p.Month > 12 || p.Day < 1 || p.Day > 31 {
		return time.Time{}, fmt.Errorf("incomplete date %d-%d-%d", p.Year, p.Month, p.Day)
	}
	t := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
	if t.Day() != p.Day {
		return time.Time{}, fmt.Errorf("invalid date %d-%d-%d", p.Year, p.Month, p.Day)
	}
	return t, nil
}

var _ domrepo.PhaseEventSource = (*USNOClient)(nil)
