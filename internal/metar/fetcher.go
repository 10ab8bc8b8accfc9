package metar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flight_assistant/internal/trace"
)

// Fetcher retrieves a METAR observation for a normalized station.
type Fetcher interface {
	Fetch(ctx context.Context, station string) (*Record, error)
}

// HTTPFetcher talks to an AVWX-style REST endpoint:
// GET <base>/api/metar/<station>?token=<key> returning structured fields
// wrapped in {value}/{repr} objects.
type HTTPFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPFetcher builds a fetcher with the given base URL and per-request
// timeout.
func NewHTTPFetcher(baseURL, token string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

type avwxValue struct {
	Value *float64 `json:"value"`
	Repr  string   `json:"repr"`
}

type avwxResponse struct {
	Station       string     `json:"station"`
	Raw           string     `json:"raw"`
	Time          *avwxValue `json:"time"`
	WindDirection *avwxValue `json:"wind_direction"`
	WindSpeed     *avwxValue `json:"wind_speed"`
	WindGust      *avwxValue `json:"wind_gust"`
	Temperature   *avwxValue `json:"temperature"`
	Dewpoint      *avwxValue `json:"dewpoint"`
	Visibility    *avwxValue `json:"visibility"`
	Altimeter     *avwxValue `json:"altimeter"`
	FlightRules   string     `json:"flight_rules"`
}

// Fetch performs the upstream request and normalizes the reply.
func (f *HTTPFetcher) Fetch(ctx context.Context, station string) (*Record, error) {
	url := fmt.Sprintf("%s/api/metar/%s", f.BaseURL, station)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metar request: %w", err)
	}
	if f.Token != "" {
		q := req.URL.Query()
		q.Set("token", f.Token)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metar %s: %w", station, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metar %s: upstream status %d", station, resp.StatusCode)
	}

	var body avwxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode metar %s: %w", station, err)
	}

	return normalizeAVWX(station, &body), nil
}

func normalizeAVWX(station string, body *avwxResponse) *Record {
	rec := &Record{
		Station:        station,
		Raw:            body.Raw,
		FlightCategory: CategoryUnknown,
		Source:         SourceLive,
	}
	if body.Station != "" {
		rec.Station = body.Station
	}
	if body.Time != nil {
		rec.Time = body.Time.Repr
	}
	if v := valueInt(body.WindDirection); v != nil {
		rec.WindDirection = v
	}
	if v := valueInt(body.WindSpeed); v != nil {
		rec.WindSpeed = v
	}
	if v := valueInt(body.WindGust); v != nil {
		rec.WindGust = v
	}
	if body.Temperature != nil {
		rec.TemperatureC = body.Temperature.Value
	}
	if body.Dewpoint != nil {
		rec.DewpointC = body.Dewpoint.Value
	}
	if body.Visibility != nil {
		rec.VisibilitySM = body.Visibility.Value
	}
	if body.Altimeter != nil && body.Altimeter.Repr != "" {
		alt := body.Altimeter.Repr
		rec.Altimeter = &alt
	}
	switch body.FlightRules {
	case CategoryVFR, CategoryMVFR, CategoryIFR, CategoryLIFR:
		rec.FlightCategory = body.FlightRules
	}
	return rec
}

func valueInt(v *avwxValue) *int {
	if v == nil || v.Value == nil {
		return nil
	}
	i := int(*v.Value)
	return &i
}

// Client is the weather entry point the tools use. It validates stations,
// consults the upstream fetcher when one is configured, absorbs upstream
// failures into fallback records, and writes a fetch trace per attempt.
type Client struct {
	upstream Fetcher
	sink     *trace.Sink
}

// NewClient builds a Client. upstream may be nil (fallback-only mode).
func NewClient(upstream Fetcher, sink *trace.Sink) *Client {
	return &Client{upstream: upstream, sink: sink}
}

// Fetch returns a Record for the station. The only error is
// ErrInvalidStation; upstream trouble yields a fallback record instead.
func (c *Client) Fetch(ctx context.Context, icao string) (*Record, error) {
	station, err := NormalizeStation(icao)
	if err != nil {
		return nil, err
	}

	logger := trace.NewLogger(trace.CategoryFetch)
	logger.SetContext("station", station)

	if c.upstream == nil {
		rec := FallbackFor(station)
		logger.LogResult(map[string]any{"ok": true, "source": rec.Source, "latency_ms": 0})
		c.sink.Write(logger.Record())
		return rec, nil
	}

	start := time.Now()
	rec, err := c.upstream.Fetch(ctx, station)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		logger.LogResult(map[string]any{"ok": false, "error": err.Error(), "latency_ms": latency})
		c.sink.Write(logger.Record())
		return FallbackFor(station), nil
	}

	logger.LogResult(map[string]any{"ok": true, "source": rec.Source, "latency_ms": latency})
	c.sink.Write(logger.Record())
	return rec, nil
}

// Healthy probes the upstream with a known-good station and reports whether
// live data is being served. Fallback-only mode reports false with no error.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	if c.upstream == nil {
		return false, nil
	}
	_, err := c.upstream.Fetch(ctx, "KDEN")
	if err != nil {
		return false, err
	}
	return true, nil
}
