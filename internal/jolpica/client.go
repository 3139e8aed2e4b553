package jolpica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Sentinel errors for HTTP outcome classification.
var (
	// ErrNotFound is returned on HTTP 404: the dataset does not exist yet
	// (session not run, laps not published). Callers treat it as "no data",
	// log at warn level, and continue.
	ErrNotFound = errors.New("no data upstream")

	// ErrRateLimited is returned when HTTP 429 persists after the backoff
	// pause and single retry.
	ErrRateLimited = errors.New("rate limited upstream")

	// ErrUpstreamStatus is returned for any other non-2xx response.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
)

// Circuit breaker tuning. A batch job issues requests serially, so the
// breaker exists to stop hammering an outage mid-season, not to shed load.
const (
	breakerMaxRequests      = 1
	breakerInterval         = time.Minute
	breakerTimeout          = 2 * time.Minute
	breakerMinRequests      = 5
	breakerFailureThreshold = 0.6
)

// Client fetches race data from the results API.
//
// All requests flow through a shared token-bucket pacer so that page loops,
// per-race fetches and retries never exceed the upstream rate limit, and
// through a circuit breaker that opens during sustained upstream failure.
// Safe for concurrent use, though the ingestion jobs are sequential by design.
type Client struct {
	cfg     *Config
	http    *http.Client
	pacer   *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// NewClient creates a results API client from config.
func NewClient(cfg *Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "results-api",
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return failureRatio >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Missing datasets and rate limiting are expected outcomes,
			// not upstream failure.
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRateLimited)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Results API circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		pacer:   rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		breaker: breaker,
		logger:  logger,
	}, nil
}

// PageSize returns the configured page size for paginated endpoints.
func (c *Client) PageSize() int {
	return c.cfg.PageSize
}

// SeasonRaces returns all races for a season. The endpoint is not paginated.
func (c *Client) SeasonRaces(ctx context.Context, season string) ([]Race, error) {
	url := fmt.Sprintf("%s/%s/races/?format=json", c.cfg.BaseURL, season)

	races, err := c.getRaces(ctx, url)
	if err != nil {
		return nil, err
	}

	return races, nil
}

// Qualifying returns the qualifying classification for one session, or an
// empty slice when the envelope holds no race entry.
func (c *Client) Qualifying(ctx context.Context, season string, round int) ([]QualifyingResult, error) {
	url := fmt.Sprintf("%s/%s/%d/qualifying/?format=json", c.cfg.BaseURL, season, round)

	races, err := c.getRaces(ctx, url)
	if err != nil {
		return nil, err
	}

	if len(races) == 0 {
		return nil, nil
	}

	return races[0].QualifyingResults, nil
}

// LapsPage returns one page of lap timing for a race. The endpoint only
// exposes laps in fixed-size pages with no total count; callers drive the
// page loop through FetchAllPages.
func (c *Client) LapsPage(ctx context.Context, season string, round, offset int) ([]Lap, error) {
	url := fmt.Sprintf("%s/%s/%d/laps/?format=json&limit=%d&offset=%d",
		c.cfg.BaseURL, season, round, c.cfg.PageSize, offset)

	races, err := c.getRaces(ctx, url)
	if err != nil {
		return nil, err
	}

	if len(races) == 0 {
		return nil, nil
	}

	return races[0].Laps, nil
}

// PitStops returns all pit stops for one race.
func (c *Client) PitStops(ctx context.Context, season string, round int) ([]PitStop, error) {
	url := fmt.Sprintf("%s/%s/%d/pitstops/?format=json", c.cfg.BaseURL, season, round)

	races, err := c.getRaces(ctx, url)
	if err != nil {
		return nil, err
	}

	if len(races) == 0 {
		return nil, nil
	}

	return races[0].PitStops, nil
}

// getRaces fetches a URL and decodes the MRData envelope down to its race
// list. A body that fails to decode is treated as an empty envelope.
func (c *Client) getRaces(ctx context.Context, url string) ([]Race, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("Malformed envelope from results API, treating as no data",
			slog.String("url", url),
			slog.String("error", err.Error()))

		return nil, nil
	}

	return env.MRData.RaceTable.Races, nil
}

// get performs one paced, breaker-guarded request. On HTTP 429 it pauses for
// the configured backoff and retries exactly once; a second 429 surfaces as
// ErrRateLimited.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.doOnce(ctx, url)
	if !errors.Is(err, ErrRateLimited) {
		return body, err
	}

	c.logger.Warn("Rate limited by results API, backing off",
		slog.String("url", url),
		slog.Duration("pause", c.cfg.RateLimitPause))

	if err := sleepContext(ctx, c.cfg.RateLimitPause); err != nil {
		return nil, err
	}

	return c.doOnce(ctx, url)
}

func (c *Client) doOnce(ctx context.Context, url string) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
			return nil, fmt.Errorf("%w: %d from %s", ErrUpstreamStatus, resp.StatusCode, url)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		return body, nil
	})
}

// sleepContext pauses for d without blocking past context cancellation, so a
// backoff never pins a job that has been asked to stop.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
