package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ntm-hq/ntm/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Namespace: "test",
		Path:      "/metrics",
	}
}

// TestCollector_NewCollector tests collector creation
func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if !collector.Enabled() {
		t.Error("Expected collector enabled by default")
	}
}

func TestCollector_DefaultRegistry(t *testing.T) {
	collector := NewCollector(&config.MetricsConfig{}, nil)
	if collector.Registry() == nil {
		t.Fatal("Expected a registry to be created")
	}

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "go_") {
			found = true
		}
	}
	if !found {
		t.Error("Expected Go runtime metrics in the default registry")
	}
}

// TestCollector_RecordAPIRequest tests request recording
func TestCollector_RecordAPIRequest(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		name   string
		method string
		route  string
		status int
	}{
		{name: "list clients", method: "GET", route: "GET /clients", status: 200},
		{name: "add proxy", method: "PUT", route: "PUT /client/{id}/proxy", status: 201},
		{name: "forbidden", method: "GET", route: "GET /clients", status: 403},
		{name: "unmatched", method: "GET", route: "", status: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordAPIRequest(tt.method, tt.route, tt.status, 5*time.Millisecond)
		})
	}

	if got := testutil.ToFloat64(collector.apiMetrics.requestsTotal.WithLabelValues("GET", "GET /clients", "200")); got != 1 {
		t.Errorf("Expected 1 request, got %v", got)
	}
	if got := testutil.ToFloat64(collector.apiMetrics.requestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("Expected unmatched route label, got %v", got)
	}
	if count := testutil.CollectAndCount(collector.apiMetrics.requestDuration); count != 3 {
		t.Errorf("Expected 3 duration series, got %d", count)
	}
}

func TestCollector_Supervisor(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	sm := collector.supervisorMetrics

	if got := testutil.ToFloat64(sm.state.WithLabelValues("idle")); got != 1 {
		t.Errorf("Expected initial idle state, got %v", got)
	}

	collector.SupervisorState("running")
	collector.RecordLaunch(true)
	collector.RecordLaunch(false)
	collector.RecordExit("crashed")
	collector.RecordProcessSample(12.5, 4096)

	if got := testutil.ToFloat64(sm.state.WithLabelValues("running")); got != 1 {
		t.Errorf("Expected running=1, got %v", got)
	}
	if got := testutil.ToFloat64(sm.state.WithLabelValues("idle")); got != 0 {
		t.Errorf("Expected idle=0, got %v", got)
	}
	if got := testutil.ToFloat64(sm.launches.WithLabelValues("failure")); got != 1 {
		t.Errorf("Expected 1 failed launch, got %v", got)
	}
	if got := testutil.ToFloat64(sm.exits.WithLabelValues("crashed")); got != 1 {
		t.Errorf("Expected 1 crash, got %v", got)
	}
	if got := testutil.ToFloat64(sm.rss); got != 4096 {
		t.Errorf("Expected rss 4096, got %v", got)
	}

	collector.SupervisorState("backoff")
	if got := testutil.ToFloat64(sm.cpu); got != 0 {
		t.Errorf("Expected cpu reset when not running, got %v", got)
	}
}

func TestCollector_RegistryAndSync(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RegistrySize(3, 7)
	collector.RecordSync("applied", 20*time.Millisecond)
	collector.RecordSync("rejected", 5*time.Millisecond)
	collector.RecordSync("applied", 10*time.Millisecond)

	if got := testutil.ToFloat64(collector.registryMetrics.proxies); got != 7 {
		t.Errorf("Expected 7 proxies, got %v", got)
	}
	if got := testutil.ToFloat64(collector.syncMetrics.cycles.WithLabelValues("applied")); got != 2 {
		t.Errorf("Expected 2 applied cycles, got %v", got)
	}
	if got := testutil.ToFloat64(collector.syncMetrics.lastRun); got == 0 {
		t.Error("Expected last run timestamp to be set")
	}
}

func TestCollector_Disabled(t *testing.T) {
	disabled := false
	cfg := testConfig()
	cfg.Enabled = &disabled
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordLaunch(true)
	collector.RegistrySize(1, 1)
	collector.RecordAPIRequest("GET", "GET /clients", 200, time.Millisecond)

	if got := testutil.ToFloat64(collector.supervisorMetrics.launches.WithLabelValues("success")); got != 0 {
		t.Errorf("Expected no launches recorded, got %v", got)
	}
	if got := testutil.ToFloat64(collector.registryMetrics.clients); got != 0 {
		t.Errorf("Expected no clients recorded, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RegistrySize(2, 3)

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("Failed to scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "test_registry_clients 2") {
		t.Errorf("Expected registry gauge in output:\n%s", body)
	}
}

func TestCollector_Serve(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordSync("applied", 20*time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- collector.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("Failed to scrape: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `test_sync_cycles_total{result="applied"} 1`) {
		t.Errorf("Expected sync counter in output:\n%s", body)
	}

	resp, err = http.Get(base + "/other")
	if err != nil {
		cancel()
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 outside the metrics path, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
