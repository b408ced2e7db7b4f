package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msto63/signspeak/internal/companion/settings"
	"github.com/msto63/signspeak/internal/companion/state"
	"github.com/msto63/signspeak/pkg/core/errs"
	"github.com/msto63/signspeak/pkg/core/logging"
)

const (
	pongWait     = 120 * time.Second
	pingInterval = 30 * time.Second
)

// WebSocket upgrader with permissive settings for local clients
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a client message
type WSMessage struct {
	Type    string          `json:"type"` // "ping", "speak", "settings", "connect", "demo", "probe"
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSResponse is a server message
type WSResponse struct {
	Type    string      `json:"type"` // "state", "ok", "error", "pong"
	Payload interface{} `json:"payload"`
}

// WSErrorPayload describes a failed command
type WSErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSAckPayload confirms a command
type WSAckPayload struct {
	Command string      `json:"command"`
	Result  interface{} `json:"result,omitempty"`
}

// wsHandler streams state snapshots and accepts commands
type wsHandler struct {
	engine    Engine
	writeWait time.Duration
	logger    *logging.Logger
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	h.handleConnection(conn)
}

func (h *wsHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()
	h.logger.Info("WebSocket connection established", "remote", conn.RemoteAddr().String())

	sub := h.engine.Subscribe()
	defer h.engine.Unsubscribe(sub)

	out := make(chan WSResponse, 8)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(writerDone)
		h.writeLoop(conn, sub, out, readerDone)
	}()

	send := func(resp WSResponse) {
		select {
		case out <- resp:
		case <-writerDone:
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", "error", err)
			} else {
				h.logger.Info("WebSocket connection closed")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		send(h.dispatch(msg))
	}

	close(readerDone)
	wg.Wait()
}

// writeLoop owns all writes to conn
func (h *wsHandler) writeLoop(conn *websocket.Conn, sub <-chan state.Snapshot, out <-chan WSResponse, quit <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(v interface{}) bool {
		if h.writeWait > 0 {
			conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		}
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("WebSocket send error", "error", err)
			conn.Close()
			return false
		}
		return true
	}

	for {
		select {
		case <-quit:
			return
		case snap, ok := <-sub:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped"),
					time.Now().Add(time.Second))
				conn.Close()
				return
			}
			if !write(WSResponse{Type: "state", Payload: snap}) {
				return
			}
		case resp := <-out:
			if !write(resp) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// dispatch runs one client command and builds the reply
func (h *wsHandler) dispatch(msg WSMessage) WSResponse {
	var err error
	var result interface{}

	switch msg.Type {
	case "ping":
		return WSResponse{Type: "pong"}

	case "speak":
		var p SpeakRequest
		if err = decodePayload(msg.Payload, &p); err == nil {
			err = h.engine.RequestSpeak(p.Text)
		}

	case "settings":
		var p settings.Patch
		if err = decodePayload(msg.Payload, &p); err == nil {
			result, err = h.engine.UpdateSettings(p)
		}

	case "connect":
		var p AddressRequest
		if err = decodePayload(msg.Payload, &p); err == nil {
			err = h.engine.Connect(p.Address)
		}

	case "demo":
		err = h.engine.EnterDemoMode()

	case "probe":
		var p AddressRequest
		if err = decodePayload(msg.Payload, &p); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			probeErr := h.engine.TestConnection(ctx, p.Address)
			cancel()
			probe := ProbeResponse{Address: p.Address, Online: probeErr == nil}
			if probeErr != nil {
				probe.Error = probeErr.Error()
			}
			result = probe
		}

	default:
		return errorResponse("unknown_type", "Unknown message type: "+msg.Type)
	}

	if err != nil {
		code := "invalid_payload"
		if c := errs.GetCode(err); c != errs.CodeUnknown {
			code = strings.ToLower(c.String())
		}
		return errorResponse(code, err.Error())
	}
	return WSResponse{Type: "ok", Payload: WSAckPayload{Command: msg.Type, Result: result}}
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorResponse(code, message string) WSResponse {
	return WSResponse{Type: "error", Payload: WSErrorPayload{Code: code, Message: message}}
}
