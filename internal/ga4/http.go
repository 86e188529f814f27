package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://analyticsdata.googleapis.com"
	analyticsScope = "https://www.googleapis.com/auth/analytics.readonly"
)

// Config holds GA4 Data API client settings.
type Config struct {
	// ServiceAccountJSON is the raw service-account key used to mint
	// access tokens.
	ServiceAccountJSON []byte
	// Properties maps site id to GA4 property id.
	Properties map[string]string
	// Timeout bounds each runReport round-trip.
	Timeout time.Duration
	// BaseURL overrides the Data API endpoint (tests).
	BaseURL string
}

// HTTPClient implements Client against the GA4 Data API v1beta
// runReport endpoint. It is constructed explicitly and injected into
// the evaluators; there is no package-level instance.
type HTTPClient struct {
	baseURL    string
	properties map[string]string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a GA4 Data API client. Token acquisition uses
// the service-account JWT flow with the analytics read-only scope.
func NewHTTPClient(cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	if len(cfg.Properties) == 0 {
		return nil, fmt.Errorf("ga4: no properties configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := &http.Client{Timeout: timeout}
	if len(cfg.ServiceAccountJSON) > 0 {
		jwtCfg, err := google.JWTConfigFromJSON(cfg.ServiceAccountJSON, analyticsScope)
		if err != nil {
			return nil, fmt.Errorf("ga4: parse service account: %w", err)
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: jwtCfg.TokenSource(context.Background()),
				Base:   http.DefaultTransport,
			},
		}
	}

	return &HTTPClient{
		baseURL:    baseURL,
		properties: cfg.Properties,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// runReport request/response wire types (Data API v1beta subset).

type reportRequest struct {
	DateRanges []dateRange   `json:"dateRanges"`
	Dimensions []namedField  `json:"dimensions,omitempty"`
	Metrics    []namedField  `json:"metrics"`
	OrderBys   []orderBySpec `json:"orderBys,omitempty"`
}

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type namedField struct {
	Name string `json:"name"`
}

type orderBySpec struct {
	Dimension *dimensionOrderBy `json:"dimension,omitempty"`
}

type dimensionOrderBy struct {
	DimensionName string `json:"dimensionName"`
}

type reportResponse struct {
	Rows []reportRow `json:"rows"`
}

type reportRow struct {
	DimensionValues []reportValue `json:"dimensionValues"`
	MetricValues    []reportValue `json:"metricValues"`
}

type reportValue struct {
	Value string `json:"value"`
}

func (c *HTTPClient) propertyID(siteID string) (string, error) {
	id, ok := c.properties[siteID]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: no GA4 property id configured for site %q", ErrUnavailable, siteID)
	}
	return id, nil
}

func (c *HTTPClient) runReport(ctx context.Context, propertyID string, req reportRequest) (*reportResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal report request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/properties/%s:runReport", c.baseURL, propertyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create report request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: runReport status %d: %s", ErrUnavailable, resp.StatusCode, string(detail))
	}

	var report reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: decode report: %v", ErrUnavailable, err)
	}
	return &report, nil
}

// firstRowMetrics returns the metric values of the first row, padded
// with zeroes. An empty report (no data in range) is a valid result.
func firstRowMetrics(report *reportResponse, n int) []float64 {
	values := make([]float64, n)
	if len(report.Rows) == 0 {
		return values
	}
	for i, mv := range report.Rows[0].MetricValues {
		if i >= n {
			break
		}
		v, err := strconv.ParseFloat(mv.Value, 64)
		if err == nil {
			values[i] = v
		}
	}
	return values
}

// TrafficSummary implements Client.
func (c *HTTPClient) TrafficSummary(ctx context.Context, siteID string, windowDays int) (*TrafficSummary, error) {
	propertyID, err := c.propertyID(siteID)
	if err != nil {
		return nil, err
	}

	metrics := []namedField{{Name: "sessions"}, {Name: "totalUsers"}}
	current, previous, err := c.fetchPeriods(ctx, propertyID, windowDays, metrics)
	if err != nil {
		return nil, err
	}

	summary := &TrafficSummary{
		Current:  PeriodTraffic{Sessions: int64(current[0]), Users: int64(current[1])},
		Previous: PeriodTraffic{Sessions: int64(previous[0]), Users: int64(previous[1])},
	}
	summary.ChangePercent = ChangePercent(current[0], previous[0])

	c.logger.Debug("fetched traffic summary",
		zap.String("site", siteID),
		zap.Int64("current_sessions", summary.Current.Sessions),
		zap.Int64("previous_sessions", summary.Previous.Sessions),
		zap.Float64("change_percent", summary.ChangePercent))

	return summary, nil
}

// ConversionSummary implements Client.
func (c *HTTPClient) ConversionSummary(ctx context.Context, siteID string, windowDays int) (*ConversionSummary, error) {
	propertyID, err := c.propertyID(siteID)
	if err != nil {
		return nil, err
	}

	metrics := []namedField{{Name: "sessions"}, {Name: "conversions"}}
	current, previous, err := c.fetchPeriods(ctx, propertyID, windowDays, metrics)
	if err != nil {
		return nil, err
	}

	summary := &ConversionSummary{
		Current: PeriodConversion{
			Sessions:       int64(current[0]),
			Conversions:    int64(current[1]),
			ConversionRate: rate(current[1], current[0]),
		},
		Previous: PeriodConversion{
			Sessions:       int64(previous[0]),
			Conversions:    int64(previous[1]),
			ConversionRate: rate(previous[1], previous[0]),
		},
	}
	summary.ChangePercent = ChangePercent(summary.Current.ConversionRate, summary.Previous.ConversionRate)

	c.logger.Debug("fetched conversion summary",
		zap.String("site", siteID),
		zap.Float64("current_rate", summary.Current.ConversionRate),
		zap.Float64("previous_rate", summary.Previous.ConversionRate),
		zap.Float64("change_percent", summary.ChangePercent))

	return summary, nil
}

// PageviewsSummary implements Client.
func (c *HTTPClient) PageviewsSummary(ctx context.Context, siteID string, days int) (*PageviewsSummary, error) {
	propertyID, err := c.propertyID(siteID)
	if err != nil {
		return nil, err
	}

	report, err := c.runReport(ctx, propertyID, reportRequest{
		DateRanges: []dateRange{{StartDate: fmt.Sprintf("%ddaysAgo", days), EndDate: "yesterday"}},
		Dimensions: []namedField{{Name: "date"}},
		Metrics:    []namedField{{Name: "screenPageViews"}},
		OrderBys:   []orderBySpec{{Dimension: &dimensionOrderBy{DimensionName: "date"}}},
	})
	if err != nil {
		return nil, err
	}

	daily := make([]float64, 0, len(report.Rows))
	for _, row := range report.Rows {
		if len(row.MetricValues) == 0 {
			daily = append(daily, 0)
			continue
		}
		v, err := strconv.ParseFloat(row.MetricValues[0].Value, 64)
		if err != nil {
			v = 0
		}
		daily = append(daily, v)
	}

	average, lastDay, multiplier := SpikeStats(daily)
	summary := &PageviewsSummary{
		Daily:      daily,
		Average:    average,
		LastDay:    lastDay,
		Multiplier: multiplier,
	}

	c.logger.Debug("fetched pageviews summary",
		zap.String("site", siteID),
		zap.Int("days", len(daily)),
		zap.Float64("average", average),
		zap.Float64("last_day", lastDay),
		zap.Float64("multiplier", multiplier))

	return summary, nil
}

// fetchPeriods runs two reports: the last windowDays days ending
// yesterday, and the equal-length window immediately before it.
func (c *HTTPClient) fetchPeriods(ctx context.Context, propertyID string, windowDays int, metrics []namedField) (current, previous []float64, err error) {
	currentReport, err := c.runReport(ctx, propertyID, reportRequest{
		DateRanges: []dateRange{{
			StartDate: fmt.Sprintf("%ddaysAgo", windowDays),
			EndDate:   "yesterday",
		}},
		Metrics: metrics,
	})
	if err != nil {
		return nil, nil, err
	}

	previousReport, err := c.runReport(ctx, propertyID, reportRequest{
		DateRanges: []dateRange{{
			StartDate: fmt.Sprintf("%ddaysAgo", windowDays*2),
			EndDate:   fmt.Sprintf("%ddaysAgo", windowDays+1),
		}},
		Metrics: metrics,
	})
	if err != nil {
		return nil, nil, err
	}

	return firstRowMetrics(currentReport, len(metrics)), firstRowMetrics(previousReport, len(metrics)), nil
}

func rate(conversions, sessions float64) float64 {
	if sessions == 0 {
		return 0
	}
	return conversions / sessions
}
