package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := newServer(zap.NewNop(), reg)
	ts := httptest.NewServer(s.routes(reg))
	t.Cleanup(ts.Close)
	return s, ts
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCalcDefaults(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getBody(t, ts.URL+"/calc")
	require.Equal(t, http.StatusOK, status)

	var r filterbits.Report
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.Equal(t, 536870912.0, r.UniformBits)
	require.Equal(t, int64(611319808), r.MonkeyBits)
	require.Equal(t, 72.875, r.MonkeySize)
}

func TestCalcQuery(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getBody(t, ts.URL+"/calc?entryCount=100&unit=Mibit")
	require.Equal(t, http.StatusOK, status)
	var r filterbits.Report
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.Equal(t, int64(1300), r.MonkeyBits)
	require.Equal(t, filterbits.UnitMibit, r.Params.Unit)

	status, body = getBody(t, ts.URL+"/calc?sizeRatio=1")
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, "sizeRatio")

	status, _ = getBody(t, ts.URL+"/calc?entryCount=lots")
	require.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Post(ts.URL+"/calc", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketCalculate(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "calculate",
		"params": map[string]interface{}{"decrement": "fpr", "unit": "Mibit"},
	}))
	var reply ServerMessage
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "report", reply.Type)
	require.NotNil(t, reply.Report)
	require.Equal(t, int64(545259520), reply.Report.MonkeyBits)
	require.Equal(t, []string{
		"Uniform 1 GiB db with 8 bits uses 512.0 Mibit",
		"Monkey 1 GiB db with 13 bits uses in worst possible case 520.0 Mibit",
	}, reply.Lines)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "calculate",
		"params": map[string]interface{}{"memtableCapacity": 0},
	}))
	reply = ServerMessage{}
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "error", reply.Type)
	require.Contains(t, reply.Error, "memtableCapacity")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "start"}))
	reply = ServerMessage{}
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, "error", reply.Type)
	require.Contains(t, reply.Error, "unknown message type")
}

func TestMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	status, _ := getBody(t, ts.URL+"/calc")
	require.Equal(t, http.StatusOK, status)
	status, _ = getBody(t, ts.URL+"/calc?sizeRatio=0")
	require.Equal(t, http.StatusBadRequest, status)

	status, body := getBody(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	for _, want := range []string{
		`filterbits_total_bits{policy="monkey"} 6.11319808e+08`,
		`filterbits_total_bits{policy="uniform"} 5.36870912e+08`,
		`filterbits_level_bits_per_entry{level="0"} 13`,
		`filterbits_level_bits_per_entry{level="3"} 7`,
		`filterbits_calculations_total{outcome="ok"} 1`,
		`filterbits_calculations_total{outcome="invalid"} 1`,
	} {
		require.Contains(t, body, want)
	}

	// A shallower tree drops the deeper level gauges.
	status, _ = getBody(t, ts.URL+"/calc?entryCount=100")
	require.Equal(t, http.StatusOK, status)
	_, body = getBody(t, ts.URL+"/metrics")
	require.Contains(t, body, `filterbits_level_bits_per_entry{level="0"} 13`)
	require.NotContains(t, body, `filterbits_level_bits_per_entry{level="3"}`)
}

func TestQuit(t *testing.T) {
	s, ts := newTestServer(t)

	status, body := getBody(t, ts.URL+"/quitquitquit")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "shutting down")
	<-s.quit

	// A second request must not panic on the closed channel.
	status, _ = getBody(t, ts.URL+"/quitquitquit")
	require.Equal(t, http.StatusOK, status)
}
