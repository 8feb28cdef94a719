package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/dmrolfs/weather-monitor/pkg/metrics"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
)

const (
	retryMinBackoff = time.Second
	retryMaxBackoff = 300 * time.Second
	maxRetries      = 3
)

// HTTPClient is the pooled, retrying client against the real weather
// service's REST+GeoJSON API. Path building and retry/pooling parameters
// (3 retries, 1s-300s exponential backoff, 5 idle conns/host, 60s idle
// timeout, fixed User-Agent) are carried over from the reference provider
// client this was adapted from.
type HTTPClient struct {
	http      *http.Client
	baseURL   *url.URL
	userAgent string
}

// NewHTTPClient builds a client against baseURL, identifying itself with
// userAgent on every request (the provider requires a contactable
// User-Agent on all requests).
func NewHTTPClient(baseURL, userAgent string) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("noaa: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("noaa: %q is not a usable base url", baseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 5
	transport.IdleConnTimeout = 60 * time.Second

	return &HTTPClient{
		http:      &http.Client{Transport: transport, Timeout: 30 * time.Second},
		baseURL:   parsed,
		userAgent: userAgent,
	}, nil
}

func (c *HTTPClient) withPath(segments ...string) *url.URL {
	u := *c.baseURL
	u.Path = path.Join(u.Path, path.Join(segments...))
	return &u
}

// fetch issues a GET against u, retrying transient (5xx, network) failures
// with jittered exponential backoff, up to maxRetries retries after the
// first attempt. The
// label doubles as the metrics capability tag.
func (c *HTTPClient) fetch(ctx context.Context, label string, u *url.URL) ([]byte, error) {
	timer := metrics.NewTimer()
	body, err := c.fetchRetrying(ctx, label, u)
	timer.ObserveDurationVec(metrics.ProviderCallDuration, label)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.ProviderCallsTotal.WithLabelValues(label, outcome).Inc()
	return body, err
}

func (c *HTTPClient) fetchRetrying(ctx context.Context, label string, u *url.URL) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffFor(attempt)
			metrics.ProviderRetriesTotal.WithLabelValues(label).Inc()
			logger := log.WithComponent("noaa")
			logger.Warn().Str("label", label).Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying weather provider request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, transient, err := c.fetchOnce(ctx, label, u)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !transient {
			return nil, err
		}
	}
	return nil, fmt.Errorf("noaa: %s: retries exhausted: %w", label, lastErr)
}

func (c *HTTPClient) fetchOnce(ctx context.Context, label string, u *url.URL) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("noaa: %s: build request: %w", label, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("noaa: %s: request failed: %w", label, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("noaa: %s: read body: %w", label, err)
	}

	logResponse(label, u, resp.StatusCode)

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("noaa: %s: server error %d", label, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("noaa: %s: client error %d", label, resp.StatusCode)
	}
	return body, false, nil
}

func backoffFor(attempt int) time.Duration {
	base := float64(retryMinBackoff) * math.Pow(2, float64(attempt-1))
	jittered := base * (0.5 + rand.Float64())
	d := time.Duration(jittered)
	if d > retryMaxBackoff {
		d = retryMaxBackoff
	}
	return d
}

func logResponse(label string, u *url.URL, status int) {
	logger := log.WithComponent("noaa")
	event := logger.Debug()
	if status >= 400 {
		event = logger.Warn()
	}
	event.Str("label", label).Str("url", u.String()).Int("status", status).Msg("response recv from weather provider")
}

// geoJSONFeatureCollection and geoJSONFeature mirror only the subset of
// the provider's GeoJSON response shape this client consumes: the
// properties bag each Feature carries.
type geoJSONFeatureCollection struct {
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Properties json.RawMessage `json:"properties"`
}

func (c *HTTPClient) ZoneObservation(ctx context.Context, zone ids.ZoneCode) (weather.Frame, error) {
	u := c.withPath("zones", "forecast", string(zone), "observations")
	body, err := c.fetch(ctx, "zone_observation", u)
	if err != nil {
		return weather.Frame{}, err
	}

	var collection geoJSONFeatureCollection
	if err := json.Unmarshal(body, &collection); err != nil {
		return weather.Frame{}, fmt.Errorf("noaa: zone_observation: decode: %w", err)
	}

	features := make([]weather.Feature, 0, len(collection.Features))
	for _, raw := range collection.Features {
		feature, err := decodeObservationProperties(raw.Properties)
		if err != nil {
			return weather.Frame{}, fmt.Errorf("noaa: zone_observation: %w", err)
		}
		features = append(features, feature)
	}

	return weather.AggregateFrame(time.Now().UTC(), features), nil
}

func (c *HTTPClient) ZoneForecast(ctx context.Context, zoneType ids.ZoneType, zone ids.ZoneCode) (weather.ZoneForecast, error) {
	u := c.withPath("zones", string(zoneType), string(zone), "forecast")
	body, err := c.fetch(ctx, "zone_forecast", u)
	if err != nil {
		return weather.ZoneForecast{}, err
	}

	var wire struct {
		Properties struct {
			UpdateTime time.Time `json:"updateTime"`
			Periods    []struct {
				Name           string `json:"name"`
				DetailedForecast string `json:"detailedForecast"`
			} `json:"periods"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return weather.ZoneForecast{}, fmt.Errorf("noaa: zone_forecast: decode: %w", err)
	}

	periods := make([]weather.ForecastDetail, 0, len(wire.Properties.Periods))
	for _, p := range wire.Properties.Periods {
		periods = append(periods, weather.ForecastDetail{Name: p.Name, Forecast: p.DetailedForecast})
	}

	return weather.ZoneForecast{
		ZoneCode: string(zone),
		Updated:  wire.Properties.UpdateTime,
		Periods:  periods,
	}, nil
}

func (c *HTTPClient) ActiveAlerts(ctx context.Context) ([]weather.Alert, error) {
	u := c.withPath("alerts", "active")
	body, err := c.fetch(ctx, "active_alerts", u)
	if err != nil {
		return nil, err
	}

	var collection geoJSONFeatureCollection
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, fmt.Errorf("noaa: active_alerts: decode: %w", err)
	}

	alerts := make([]weather.Alert, 0, len(collection.Features))
	for _, raw := range collection.Features {
		var alert weather.Alert
		if err := json.Unmarshal(raw.Properties, &alert); err != nil {
			return nil, fmt.Errorf("noaa: active_alerts: decode feature: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// decodeObservationProperties keeps only the quantitative readings from a
// feature's properties bag; the provider interleaves them with metadata
// fields (station URL, timestamp, text description) that aggregation
// never consumes.
func decodeObservationProperties(raw json.RawMessage) (weather.Feature, error) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode observation properties: %w", err)
	}

	feature := make(weather.Feature)
	for name, rawValue := range wire {
		prop := weather.QuantitativeProperty(name)
		if !weather.Quantitative(prop) {
			continue
		}
		var v struct {
			Value          *float64 `json:"value"`
			UnitCode       string   `json:"unitCode"`
			QualityControl string   `json:"qualityControl"`
		}
		if err := json.Unmarshal(rawValue, &v); err != nil {
			return nil, fmt.Errorf("decode observation property %s: %w", name, err)
		}
		feature[prop] = weather.PropertyDetail{
			Value:    v.Value,
			UnitCode: v.UnitCode,
			Grade:    weather.Grade(v.QualityControl),
		}
	}
	return feature, nil
}
