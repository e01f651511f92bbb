// stream_test.go - Tests for the websocket telemetry stream
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/models"
	"github.com/iot-dashboard/agent/internal/syncer"
)

func dialStream(t *testing.T, engine *syncer.Engine) *websocket.Conn {
	t.Helper()
	e := echo.New()
	sh := NewStreamHandler(engine, zap.NewNop())
	e.GET("/api/ws/telemetry", sh.HandleTelemetryWS)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/telemetry"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestStreamSendsSnapshotOnConnect(t *testing.T) {
	engine := seedEngine(t, recentSamples(3))
	ws := dialStream(t, engine)

	msg := readFrame(t, ws)
	assert.Equal(t, MsgTypeConnected, msg.Type)
	assert.NotZero(t, msg.Timestamp)

	var snapshot []models.TelemetrySample
	require.NoError(t, json.Unmarshal(msg.Payload, &snapshot))
	assert.Len(t, snapshot, 3)
}

func TestStreamAnswersPing(t *testing.T) {
	engine := seedEngine(t, nil)
	ws := dialStream(t, engine)

	// Drain the connected frame first.
	msg := readFrame(t, ws)
	require.Equal(t, MsgTypeConnected, msg.Type)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	msg = readFrame(t, ws)
	assert.Equal(t, MsgTypePong, msg.Type)
}

func TestStreamIgnoresUnknownMessages(t *testing.T) {
	engine := seedEngine(t, nil)
	ws := dialStream(t, engine)

	msg := readFrame(t, ws)
	require.Equal(t, MsgTypeConnected, msg.Type)

	// An unknown frame neither answers nor kills the connection.
	require.NoError(t, ws.WriteJSON(WSMessage{Type: "subscribe"}))
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	msg = readFrame(t, ws)
	assert.Equal(t, MsgTypePong, msg.Type)
}

func TestStreamRejectsPlainHTTP(t *testing.T) {
	engine := seedEngine(t, nil)
	e := echo.New()
	sh := NewStreamHandler(engine, zap.NewNop())
	e.GET("/api/ws/telemetry", sh.HandleTelemetryWS)

	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ws/telemetry")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
