package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/msto63/signspeak/internal/companion/state"
)

// Client is a websocket connection to a running engine's presentation API
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// wsEnvelope mirrors the server's message shape
type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// URLFor turns "host:port" or an http(s)/ws(s) URL into the websocket endpoint
func URLFor(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("empty server address")
	}
	if !strings.Contains(address, "://") {
		address = "ws://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid server address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/api/v1/ws"
	}
	return u.String(), nil
}

// Dial connects to the server at address
func Dial(ctx context.Context, address string) (*Client, error) {
	wsURL, err := URLFor(address)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return &Client{conn: conn}, nil
}

// Next blocks for the next server message and converts it into a tea message
func (c *Client) Next() (interface{}, error) {
	for {
		var env wsEnvelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return nil, err
		}

		switch env.Type {
		case "state":
			var snap state.Snapshot
			if err := json.Unmarshal(env.Payload, &snap); err != nil {
				return nil, fmt.Errorf("invalid state payload: %w", err)
			}
			return stateMsg{snapshot: snap}, nil

		case "ok":
			var ack struct {
				Command string `json:"command"`
			}
			json.Unmarshal(env.Payload, &ack)
			return replyMsg{command: ack.Command, ok: true}, nil

		case "error":
			var e struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			json.Unmarshal(env.Payload, &e)
			return replyMsg{ok: false, message: e.Message}, nil
		}
		// pong and unknown types are skipped
	}
}

// Send issues a command
func (c *Client) Send(command string, payload interface{}) error {
	msg := map[string]interface{}{"type": command}
	if payload != nil {
		msg["payload"] = payload
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
