// stream.go - WebSocket push of telemetry notifications to dashboard views
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/models"
	"github.com/iot-dashboard/agent/internal/syncer"
)

// WebSocket message types for the telemetry stream protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeTelemetry = "telemetry"
	MsgTypePong      = "pong"
)

// WSMessage is the frame exchanged over the telemetry socket.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// StreamHandler pushes every notification event to connected dashboard views.
// Each connection holds its own engine subscription, torn down on disconnect.
type StreamHandler struct {
	engine   *syncer.Engine
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamHandler creates the websocket telemetry handler.
func NewStreamHandler(engine *syncer.Engine, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Dashboards are served from arbitrary local origins
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		logger: logger,
	}
}

// HandleTelemetryWS upgrades the connection and streams notification events.
// A slow consumer drops frames rather than stalling the poll loop.
func (sh *StreamHandler) HandleTelemetryWS(c echo.Context) error {
	ws, err := sh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	sh.logger.Debug("telemetry stream client connected",
		zap.String("remote", ws.RemoteAddr().String()))

	outgoing := make(chan WSMessage, 16)
	outgoing <- WSMessage{
		Type:      MsgTypeConnected,
		Payload:   mustJSON(sh.engine.Snapshot()),
		Timestamp: time.Now().UnixMilli(),
	}

	token := sh.engine.Subscribe(func(n models.Notification) {
		msg := WSMessage{
			Type:      MsgTypeTelemetry,
			Payload:   mustJSON(n),
			Timestamp: time.Now().UnixMilli(),
		}
		select {
		case outgoing <- msg:
		default:
			// consumer is behind; skip this frame
		}
	})
	defer sh.engine.Unsubscribe(token)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg := <-outgoing:
				if err := ws.WriteJSON(msg); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	// Read loop: pings keep the connection alive, anything else is ignored.
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				sh.logger.Debug("telemetry stream read error", zap.Error(err))
			}
			break
		}
		if msg.Type == MsgTypePing {
			select {
			case outgoing <- WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}:
			default:
			}
		}
	}

	sh.logger.Debug("telemetry stream client disconnected")
	return nil
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
