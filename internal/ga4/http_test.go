package ga4

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Config{
		Properties: map[string]string{"filamentrank": "123456"},
		BaseURL:    srv.URL,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func metricsResponse(values ...string) string {
	var sb strings.Builder
	sb.WriteString(`{"rows":[{"metricValues":[`)
	for i, v := range values {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"value":%q}`, v)
	}
	sb.WriteString(`]}]}`)
	return sb.String()
}

func TestTrafficSummary(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "properties/123456:runReport") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		calls++
		switch calls {
		case 1:
			if req.DateRanges[0].StartDate != "7daysAgo" || req.DateRanges[0].EndDate != "yesterday" {
				t.Errorf("current range = %+v", req.DateRanges[0])
			}
			fmt.Fprint(w, metricsResponse("700", "500"))
		case 2:
			if req.DateRanges[0].StartDate != "14daysAgo" || req.DateRanges[0].EndDate != "8daysAgo" {
				t.Errorf("previous range = %+v", req.DateRanges[0])
			}
			fmt.Fprint(w, metricsResponse("1000", "800"))
		}
	})

	summary, err := client.TrafficSummary(context.Background(), "filamentrank", 7)
	if err != nil {
		t.Fatalf("traffic summary: %v", err)
	}
	if summary.Current.Sessions != 700 || summary.Previous.Sessions != 1000 {
		t.Errorf("sessions = %d/%d, want 700/1000", summary.Current.Sessions, summary.Previous.Sessions)
	}
	if summary.ChangePercent != -30 {
		t.Errorf("changePercent = %v, want -30", summary.ChangePercent)
	}
}

func TestTrafficSummary_ZeroBaseline(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, metricsResponse("500", "400"))
			return
		}
		// Previous period returned no rows at all.
		fmt.Fprint(w, `{"rows":[]}`)
	})

	summary, err := client.TrafficSummary(context.Background(), "filamentrank", 7)
	if err != nil {
		t.Fatalf("traffic summary: %v", err)
	}
	if summary.ChangePercent != 0 {
		t.Errorf("changePercent = %v, want 0 for zero baseline", summary.ChangePercent)
	}
}

func TestConversionSummary_RateDerivation(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, metricsResponse("1000", "20")) // rate 0.02
		} else {
			fmt.Fprint(w, metricsResponse("1000", "40")) // rate 0.04
		}
	})

	summary, err := client.ConversionSummary(context.Background(), "filamentrank", 7)
	if err != nil {
		t.Fatalf("conversion summary: %v", err)
	}
	if summary.Current.ConversionRate != 0.02 {
		t.Errorf("current rate = %v, want 0.02", summary.Current.ConversionRate)
	}
	if summary.Previous.ConversionRate != 0.04 {
		t.Errorf("previous rate = %v, want 0.04", summary.Previous.ConversionRate)
	}
	if summary.ChangePercent != -50 {
		t.Errorf("changePercent = %v, want -50", summary.ChangePercent)
	}
}

func TestConversionSummary_ZeroSessions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metricsResponse("0", "0"))
	})

	summary, err := client.ConversionSummary(context.Background(), "filamentrank", 7)
	if err != nil {
		t.Fatalf("conversion summary: %v", err)
	}
	if summary.Current.ConversionRate != 0 {
		t.Errorf("rate = %v, want 0 when sessions is 0", summary.Current.ConversionRate)
	}
}

func TestPageviewsSummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Dimensions) != 1 || req.Dimensions[0].Name != "date" {
			t.Errorf("dimensions = %+v, want date", req.Dimensions)
		}

		rows := make([]string, 0, 7)
		for _, v := range []string{"10", "10", "10", "10", "10", "10", "50"} {
			rows = append(rows, fmt.Sprintf(`{"metricValues":[{"value":%q}]}`, v))
		}
		fmt.Fprintf(w, `{"rows":[%s]}`, strings.Join(rows, ","))
	})

	summary, err := client.PageviewsSummary(context.Background(), "filamentrank", 7)
	if err != nil {
		t.Fatalf("pageviews summary: %v", err)
	}
	if len(summary.Daily) != 7 {
		t.Fatalf("daily has %d points, want 7", len(summary.Daily))
	}
	if summary.Average != 10 {
		t.Errorf("average = %v, want 10", summary.Average)
	}
	if summary.LastDay != 50 {
		t.Errorf("lastDay = %v, want 50", summary.LastDay)
	}
	if summary.Multiplier != 5 {
		t.Errorf("multiplier = %v, want 5", summary.Multiplier)
	}
}

func TestUnknownSiteIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for an unconfigured site")
	})

	_, err := client.TrafficSummary(context.Background(), "unknown-site", 7)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestUpstreamErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"PERMISSION_DENIED"}}`, http.StatusForbidden)
	})

	_, err := client.TrafficSummary(context.Background(), "filamentrank", 7)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestSpikeStats(t *testing.T) {
	tests := []struct {
		name       string
		daily      []float64
		average    float64
		lastDay    float64
		multiplier float64
	}{
		{"spike", []float64{10, 10, 10, 10, 10, 10, 50}, 10, 50, 5},
		{"no spike", []float64{10, 10, 10, 10, 10, 10, 15}, 10, 15, 1.5},
		{"too short", []float64{42}, 0, 0, 0},
		{"empty", nil, 0, 0, 0},
		{"zero average", []float64{0, 0, 0, 100}, 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			average, lastDay, multiplier := SpikeStats(tt.daily)
			if average != tt.average {
				t.Errorf("average = %v, want %v", average, tt.average)
			}
			if lastDay != tt.lastDay {
				t.Errorf("lastDay = %v, want %v", lastDay, tt.lastDay)
			}
			if multiplier != tt.multiplier {
				t.Errorf("multiplier = %v, want %v", multiplier, tt.multiplier)
			}
		})
	}
}

func TestChangePercentRounding(t *testing.T) {
	tests := []struct {
		current, previous, want float64
	}{
		{700, 1000, -30},
		{666, 1000, -33.4},
		{1, 3, -66.67},
		{100, 0, 0},
		{0, 0, 0},
		{150, 100, 50},
	}

	for _, tt := range tests {
		got := ChangePercent(tt.current, tt.previous)
		if got != tt.want {
			t.Errorf("ChangePercent(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.want)
		}
	}
}
