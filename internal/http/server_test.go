package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tradedash/internal/cache"
	"tradedash/internal/core"
	"tradedash/internal/dashboard"
	"tradedash/internal/live"
	applog "tradedash/internal/log"
	"tradedash/internal/middleware/ratelimit"
)

type fakeSource struct {
	mu    sync.Mutex
	table *core.Table
	err   error
}

func (f *fakeSource) Name() string { return "fake.csv" }

func (f *fakeSource) Load(context.Context) (*core.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table, f.err
}

func (f *fakeSource) set(t *core.Table, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table, f.err = t, err
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
}

func sampleTable() *core.Table {
	return core.NewTable([]core.Transaction{
		{Category: "Toys", ShippingMethod: "Air", Direction: core.Import, Customer: "ann", Value: 100, Quantity: 1, Weight: 2},
		{Category: "Toys", ShippingMethod: "Sea", Direction: core.Export, Customer: "ann", Value: 50, Quantity: 2, Weight: 1},
		{Category: "Food", ShippingMethod: "Air", Direction: core.Import, Customer: "bob", Value: 30, Quantity: 3, Weight: 5},
		{Category: "Food", ShippingMethod: "Land", Direction: core.Export, Customer: "cal", Value: 70, Quantity: 4, Weight: 3},
	}, nil)
}

type testEnv struct {
	srv    *Server
	source *fakeSource
	charts *cache.LRUCache[[]byte]
}

func newTestEnv(t *testing.T, table *core.Table, deps Dependencies) *testEnv {
	t.Helper()
	src := &fakeSource{table: table}
	session, err := dashboard.NewSession(context.Background(), src, dashboard.Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	charts := cache.NewLRUCache[[]byte](16, time.Minute)
	deps.Session = session
	deps.Logger = quietLogger()
	deps.Charts = charts

	srv := NewServer(":0", deps)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, source: src, charts: charts}
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "192.0.2.10:4321"
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	rr := env.do(http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Top 10 Categories by Import Value",
		"Correlation Heatmap",
		`<option value="Toys"`,
		`src="/charts/import_bar.png?"`,
		`data-chart-src="/api/charts/correlation_heatmap?"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := env.do(http.MethodGet, path); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestIndexKeepsSelection(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	rr := env.do(http.MethodGet, "/?category=Food")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "2 of 4 transactions") {
		t.Errorf("expected filtered row count in body")
	}
	if !strings.Contains(body, "/charts/import_bar.png?category=Food") {
		t.Errorf("chart URLs should carry the selection")
	}
	if !strings.Contains(body, `<option value="Food" selected>`) {
		t.Errorf("selected option not marked")
	}
}

func TestIndexFormSubmitsEmptySelection(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	page := env.do(http.MethodGet, "/").Body.String()
	for _, want := range []string{
		`<input type="hidden" name="category" value="">`,
		`<input type="hidden" name="shipping" value="">`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("form missing %q", want)
		}
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"every category deselected", "category=&shipping=&shipping=Air&shipping=Sea&shipping=Land", "0 of 4 transactions"},
		{"every shipping method deselected", "category=&category=Toys&category=Food&shipping=", "0 of 4 transactions"},
		{"everything selected", "category=&category=Toys&category=Food&shipping=&shipping=Air&shipping=Sea&shipping=Land", "4 of 4 transactions"},
		{"one category selected", "category=&category=Food&shipping=&shipping=Air&shipping=Sea&shipping=Land", "2 of 4 transactions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodGet, "/?"+tt.query)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("expected %q in body", tt.want)
			}
		})
	}

	body := env.do(http.MethodGet, "/?category=&shipping=&shipping=Air").Body.String()
	if !strings.Contains(body, "No transactions match the current filters.") {
		t.Error("empty selection should render placeholders")
	}
	if strings.Contains(body, `<option value="Toys" selected>`) {
		t.Error("no category should be marked selected")
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})
	rr := env.do(http.MethodGet, "/api/options")

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if env.srv.Metrics().TotalRequests != 1 {
		t.Errorf("metrics = %+v", env.srv.Metrics())
	}
}

func TestOptions(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})
	rr := env.do(http.MethodGet, "/api/options")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}

	var got optionsResponse
	decode(t, rr, &got)
	if got.Version != 1 || got.Rows != 4 || got.Source != "fake.csv" {
		t.Errorf("options = %+v", got)
	}
	if strings.Join(got.Options.Categories, ",") != "Toys,Food" {
		t.Errorf("categories = %v", got.Options.Categories)
	}
	if strings.Join(got.Options.ShippingMethods, ",") != "Air,Sea,Land" {
		t.Errorf("shipping methods = %v", got.Options.ShippingMethods)
	}
	if len(got.Sections) != 10 {
		t.Errorf("sections = %d", len(got.Sections))
	}
}

func TestDashboardAPI(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	tests := []struct {
		name      string
		query     string
		wantRows  int
		wantEmpty bool
	}{
		{"default selects all", "", 4, false},
		{"category filter", "?category=Toys", 2, false},
		{"both filters", "?category=Food&shipping=Land", 1, false},
		{"explicit empty selection", "?category=&shipping=", 0, true},
		{"unknown value", "?category=Cars", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodGet, "/api/dashboard"+tt.query)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			var d struct {
				Version  uint64 `json:"version"`
				Rows     int    `json:"rows"`
				Sections []struct {
					Name  string `json:"name"`
					Empty bool   `json:"empty"`
					Error string `json:"error"`
				} `json:"sections"`
			}
			decode(t, rr, &d)
			if d.Rows != tt.wantRows {
				t.Errorf("rows = %d, want %d", d.Rows, tt.wantRows)
			}
			if len(d.Sections) != 10 || d.Sections[0].Name != dashboard.SectionImportBar {
				t.Fatalf("sections = %+v", d.Sections)
			}
			for _, sec := range d.Sections {
				if sec.Empty != tt.wantEmpty {
					t.Errorf("%s empty = %v", sec.Name, sec.Empty)
				}
				if sec.Error != "" {
					t.Errorf("%s error = %s", sec.Name, sec.Error)
				}
			}
		})
	}
}

func TestSectionAPI(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	rr := env.do(http.MethodGet, "/api/sections/"+dashboard.SectionShippingPie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var sec struct {
		Kind string `json:"kind"`
		Data []struct {
			Label string `json:"label"`
			Count int    `json:"count"`
		} `json:"data"`
	}
	decode(t, rr, &sec)
	if sec.Kind != "pie" || len(sec.Data) != 3 || sec.Data[0].Label != "Air" || sec.Data[0].Count != 2 {
		t.Errorf("section = %+v", sec)
	}
	if rr.Header().Get("X-Dataset-Version") != "1" {
		t.Errorf("X-Dataset-Version = %q", rr.Header().Get("X-Dataset-Version"))
	}

	if rr := env.do(http.MethodGet, "/api/sections/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown section status=%d", rr.Code)
	}
}

func TestChartConfigAPI(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	rr := env.do(http.MethodGet, "/api/charts/"+dashboard.SectionCorrelationHeatmap)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var cfg struct {
		ChartType string `json:"chartType"`
		Matrix    struct {
			Columns []string     `json:"columns"`
			Values  [][]*float64 `json:"values"`
		} `json:"matrix"`
	}
	decode(t, rr, &cfg)
	if cfg.ChartType != "heatmap" || len(cfg.Matrix.Columns) != 3 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestChartConfigDataTypeError(t *testing.T) {
	bad := core.NewTable(sampleTable().Rows(), map[string]*core.DataTypeError{
		core.ColWeight: {Column: core.ColWeight, Row: 3, Value: "heavy"},
	})
	env := newTestEnv(t, bad, Dependencies{})

	rr := env.do(http.MethodGet, "/api/charts/"+dashboard.SectionCorrelationHeatmap)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "heavy") {
		t.Errorf("error body = %s", rr.Body.String())
	}

	// Sections not reading Weight are unaffected.
	if rr := env.do(http.MethodGet, "/api/charts/"+dashboard.SectionImportBar); rr.Code != http.StatusOK {
		t.Errorf("import bar status=%d", rr.Code)
	}
}

func TestChartPNG(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"bar", "/charts/import_bar.png", http.StatusOK},
		{"stacked bar", "/charts/customer_stacked_bar.png", http.StatusOK},
		{"pie", "/charts/shipping_pie.png", http.StatusOK},
		{"bubble", "/charts/category_bubble.png", http.StatusOK},
		{"unknown", "/charts/nope.png", http.StatusNotFound},
		{"no image for heatmap", "/charts/correlation_heatmap.png", http.StatusUnsupportedMediaType},
		{"empty selection", "/charts/import_bar.png?category=", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodGet, tt.target)
			if rr.Code != tt.code {
				t.Fatalf("status=%d, want %d (%s)", rr.Code, tt.code, rr.Body.String())
			}
			if tt.code == http.StatusOK {
				if rr.Header().Get("Content-Type") != "image/png" {
					t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
				}
				if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
					t.Error("body is not a PNG")
				}
			}
		})
	}
}

func TestChartPNGCache(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	first := env.do(http.MethodGet, "/charts/import_bar.png")
	if first.Code != http.StatusOK {
		t.Fatalf("status=%d", first.Code)
	}
	if env.charts.Size() != 1 {
		t.Fatalf("cache size = %d", env.charts.Size())
	}

	second := env.do(http.MethodGet, "/charts/import_bar.png")
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("cached image differs")
	}
	if stats := env.charts.Stats(); stats.Hits != 1 {
		t.Errorf("cache stats = %+v", stats)
	}

	// A different selection is a different entry.
	env.do(http.MethodGet, "/charts/import_bar.png?shipping=Air")
	if env.charts.Size() != 2 {
		t.Fatalf("cache size = %d", env.charts.Size())
	}

	// Reload purges the cache.
	if rr := env.do(http.MethodPost, "/admin/reload"); rr.Code != http.StatusOK {
		t.Fatalf("reload status=%d", rr.Code)
	}
	if env.charts.Size() != 0 {
		t.Fatalf("cache size after reload = %d", env.charts.Size())
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})

	more := append(sampleTable().Rows(), core.Transaction{
		Category: "Tools", ShippingMethod: "Sea", Direction: core.Import, Customer: "dan", Value: 5, Quantity: 1, Weight: 1,
	})
	env.source.set(core.NewTable(more, nil), nil)

	rr := env.do(http.MethodPost, "/admin/reload")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got reloadResponse
	decode(t, rr, &got)
	if got.Version != 2 || got.Rows != 5 {
		t.Errorf("reload = %+v", got)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "dataset:reloaded") {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}

	env.source.set(nil, core.NewLoadError("fake.csv", errors.New("disk gone")))
	rr = env.do(http.MethodPost, "/admin/reload")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("failed reload status=%d", rr.Code)
	}
	decode(t, rr, &got)
	if got.Version != 2 || got.Rows != 5 || got.Error == "" {
		t.Errorf("failed reload = %+v", got)
	}

	if rr := env.do(http.MethodGet, "/admin/reload"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload status=%d", rr.Code)
	}
}

func TestReloadRateLimit(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{
		ReloadLimit: ratelimit.Config{RequestsPerWindow: 1, Window: time.Minute},
	})

	if rr := env.do(http.MethodPost, "/admin/reload"); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := env.do(http.MethodPost, "/admin/reload")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, sampleTable(), Dependencies{})
	rr := env.do(http.MethodGet, "/static/app.js")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}

func TestWebsocketThroughMiddleware(t *testing.T) {
	hub := live.NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	env := newTestEnv(t, sampleTable(), Dependencies{Live: hub})
	env.srv.session.Subscribe(hub)

	ts := httptest.NewServer(env.srv.Handler)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/admin/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev live.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != live.EventDatasetReloaded || ev.Version != 2 {
		t.Errorf("event = %+v", ev)
	}
}
