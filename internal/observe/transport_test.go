package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestTransport_RecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, m)}
	resp, err := client.Get(srv.URL + "/api/files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	rm := collect(t, reader)
	found := findMetric(rm, "voxtutor.http.request.duration")
	if found == nil {
		t.Fatal("request duration histogram not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("request duration is not a float64 histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("unexpected data points: %+v", hist.DataPoints)
	}
}

func TestTransport_DoesNotMutateCallerRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	client := &http.Client{Transport: NewTransport(nil, m)}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if got := req.Header.Get("traceparent"); got != "" {
		t.Errorf("caller request was mutated: traceparent=%q", got)
	}
}

func TestTransport_NilMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	// Must not panic without a Metrics instance.
	client := &http.Client{Transport: NewTransport(nil, nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
}

func TestTransport_PropagatesErrors(t *testing.T) {
	m, _ := newTestMetrics(t)

	client := &http.Client{Transport: NewTransport(nil, m)}
	if _, err := client.Get("http://127.0.0.1:1/unreachable"); err == nil {
		t.Error("expected connection error to propagate")
	}
}
