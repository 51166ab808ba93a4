// Package api_test exercises the HTTP and WebSocket surface end to end.
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quantdesk/quant-backend/internal/api"
	"github.com/quantdesk/quant-backend/internal/backtester"
	"github.com/quantdesk/quant-backend/internal/config"
	"github.com/quantdesk/quant-backend/internal/data"
	"github.com/quantdesk/quant-backend/internal/quant"
	"github.com/quantdesk/quant-backend/pkg/types"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	dir := t.TempDir()
	writeCandles(t, dir, "BTCUSDT_1h.csv", 300)

	store := data.NewFileStore(logger, dir)
	engine := backtester.NewEngine(logger, nil)
	generator := quant.NewGenerator(logger, nil, 10)

	serverConfig := &types.ServerConfig{
		Host:          "localhost",
		Port:          0,
		WebSocketPath: "/ws",
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  10 * time.Second,
		DataDir:       dir,
	}
	defaults := config.BacktestDefaults{
		InitialCapital: 10000,
		PositionPct:    5,
		MaxLeverage:    10,
		StopLossPct:    2,
		FeeRate:        0.0004,
		SlippageRate:   0.0005,
	}

	server := api.NewServer(logger, serverConfig, store, engine, generator, defaults)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

// writeCandles writes a gently rising hourly series.
func writeCandles(t *testing.T, dir, name string, bars int) {
	t.Helper()
	var buf bytes.Buffer
	base := int64(1700000000000)
	for i := 0; i < bars; i++ {
		price := 100 + float64(i)*0.5
		fmt.Fprintf(&buf, "%d,%.2f,%.2f,%.2f,%.2f,%.1f\n",
			base+int64(i)*3600000, price, price+1, price-1, price+0.4, 10.0)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var body map[string]any
	if code := getJSON(t, ts.URL+"/api/v1/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestStrategiesEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var body struct {
		Strategies []struct {
			Name  string `json:"name"`
			Label string `json:"label"`
		} `json:"strategies"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/strategies", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(body.Strategies) != 15 {
		t.Errorf("catalog has %d strategies, want 15", len(body.Strategies))
	}
	for _, s := range body.Strategies {
		if s.Name == "" || s.Label == "" {
			t.Errorf("catalog entry missing name or label: %+v", s)
		}
	}
}

func TestDataEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var body struct {
		Symbol  string         `json:"symbol"`
		Candles []types.Candle `json:"candles"`
		Count   int            `json:"count"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/data/BTCUSDT?interval=1h", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Count != 300 || len(body.Candles) != 300 {
		t.Errorf("count = %d/%d, want 300", body.Count, len(body.Candles))
	}

	if code := getJSON(t, ts.URL+"/api/v1/data/DOGEUSDT", nil); code != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", code)
	}
}

func TestBacktestLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	reqBody, _ := json.Marshal(map[string]any{
		"symbol":   "BTCUSDT",
		"interval": "1h",
		"strategy": "ema_crossover",
	})
	resp, err := http.Post(ts.URL+"/api/v1/backtest/run", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("run request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var accepted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}
	if accepted.ID == "" || accepted.Status != "running" {
		t.Fatalf("accepted = %+v", accepted)
	}

	var state struct {
		Status string                `json:"status"`
		Error  string                `json:"error"`
		Result *types.BacktestResult `json:"result"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		getJSON(t, ts.URL+"/api/v1/backtest/"+accepted.ID, &state)
		if state.Status != "running" || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if state.Status != "completed" {
		t.Fatalf("status = %q (error %q), want completed", state.Status, state.Error)
	}
	if state.Result == nil || state.Result.Metrics == nil {
		t.Fatal("completed backtest missing result")
	}
	if state.Result.BarsProcessed == 0 {
		t.Error("barsProcessed = 0")
	}
}

func TestBacktestRejectsUnknownStrategy(t *testing.T) {
	ts := setupTestServer(t)

	reqBody, _ := json.Marshal(map[string]any{
		"symbol":   "BTCUSDT",
		"strategy": "does_not_exist",
	})
	resp, err := http.Post(ts.URL+"/api/v1/backtest/run", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestBacktestNotFound(t *testing.T) {
	ts := setupTestServer(t)
	if code := getJSON(t, ts.URL+"/api/v1/backtest/nope", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestQuantSignalEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	reqBody, _ := json.Marshal(map[string]any{
		"symbol":   "BTCUSDT",
		"interval": "1h",
		"equity":   10000,
	})
	resp, err := http.Post(ts.URL+"/api/v1/quant/signal", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sig types.QuantSignal
	if err := json.NewDecoder(resp.Body).Decode(&sig); err != nil {
		t.Fatal(err)
	}
	if sig.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q", sig.Symbol)
	}
	if sig.ZScore == nil || sig.VWAP == nil {
		t.Error("signal missing zscore or vwap components")
	}
}

func TestQuantPairsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var body struct {
		Pairs []types.PairCorrelation `json:"pairs"`
		Count int                     `json:"count"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/quant/pairs", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Count != len(body.Pairs) {
		t.Errorf("count = %d, pairs = %d", body.Count, len(body.Pairs))
	}
}

func TestWebSocketPing(t *testing.T) {
	ts := setupTestServer(t)

	wsURL := "ws" + ts.URL[4:] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ping := api.Message{ID: "ping-1", Type: "request", Method: "ping", Timestamp: time.Now().UnixMilli()}
	if err := conn.WriteJSON(ping); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply api.Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Method != "pong" || reply.ID != ping.ID {
		t.Errorf("reply = %+v, want pong with matching id", reply)
	}
}

func TestWebSocketBacktestComplete(t *testing.T) {
	ts := setupTestServer(t)

	wsURL := "ws" + ts.URL[4:] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	reqBody, _ := json.Marshal(map[string]any{
		"symbol":   "BTCUSDT",
		"interval": "1h",
		"strategy": "ema_crossover",
	})
	resp, err := http.Post(ts.URL+"/api/v1/backtest/run", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg api.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Method != "backtest:complete" {
		t.Errorf("method = %q, want backtest:complete", msg.Method)
	}
}
