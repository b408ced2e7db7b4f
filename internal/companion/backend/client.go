// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     backend
// Description: HTTP client for the sensor-inference service
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/msto63/signspeak/pkg/core/errs"
)

// maxAudioBytes caps the size of a synthesized utterance
const maxAudioBytes = 16 * 1024 * 1024

// Config holds backend client configuration
type Config struct {
	Scheme        string
	Port          int
	InferencePath string
	SpeakPath     string
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		Scheme:        "http",
		Port:          8000,
		InferencePath: "/imu",
		SpeakPath:     "/audio/speak",
	}
}

// Params are the per-request inputs taken from the current settings
type Params struct {
	Address   string
	Language  string
	UseGemini bool
}

// Sensors holds the raw IMU readings reported alongside a gesture
type Sensors struct {
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
	AZ float64 `json:"az"`
	GX float64 `json:"gx"`
	GY float64 `json:"gy"`
	GZ float64 `json:"gz"`
}

// Reading is one decoded inference response
type Reading struct {
	Gesture  string `json:"gesture"`
	Sentence string `json:"sentence"`
	Sensors
}

// Client talks to the inference service
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new backend client. Request deadlines come from
// the caller's context.
func NewClient(cfg Config) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.InferencePath == "" {
		cfg.InferencePath = "/imu"
	}
	if cfg.SpeakPath == "" {
		cfg.SpeakPath = "/audio/speak"
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// BaseURL normalizes a user-entered address into scheme://host:port.
// A missing scheme or port is filled from the client config.
func (c *Client) BaseURL(address string) (string, error) {
	return NormalizeBase(address, c.cfg.Scheme, c.cfg.Port)
}

// NormalizeBase turns "192.168.1.5", "host:9000" or "http://host" into a
// base URL without trailing slash.
func NormalizeBase(address, scheme string, port int) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errs.New(errs.CodeInvalidSettings, "backend address must not be empty")
	}

	if !strings.Contains(address, "://") {
		address = scheme + "://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeInvalidSettings, "invalid backend address")
	}
	if u.Hostname() == "" {
		return "", errs.Newf(errs.CodeInvalidSettings, "invalid backend address %q", address)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}

	return u.Scheme + "://" + u.Host, nil
}

// Infer performs one inference request
func (c *Client) Infer(ctx context.Context, p Params) (Reading, error) {
	base, err := c.BaseURL(p.Address)
	if err != nil {
		return Reading{}, err
	}

	q := url.Values{}
	q.Set("lang", p.Language)
	q.Set("use_gemini", strconv.FormatBool(p.UseGemini))

	resp, err := c.get(ctx, base+c.cfg.InferencePath+"?"+q.Encode())
	if err != nil {
		return Reading{}, err
	}
	defer resp.Body.Close()

	var r Reading
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Reading{}, errs.Wrap(err, errs.CodeTransport, "failed to decode response")
	}
	return r, nil
}

// FetchSpeech requests synthesized audio for text
func (c *Client) FetchSpeech(ctx context.Context, address, text, language string) ([]byte, error) {
	base, err := c.BaseURL(address)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("text", text)
	q.Set("lang", language)

	resp, err := c.get(ctx, base+c.cfg.SpeakPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransport, "failed to read audio")
	}
	if len(data) == 0 {
		return nil, errs.New(errs.CodeSpeechSynthesisFailure, "empty audio response")
	}
	return data, nil
}

// Ping checks that the service root answers with a 2xx status
func (c *Client) Ping(ctx context.Context, address string) error {
	base, err := c.BaseURL(address)
	if err != nil {
		return err
	}

	resp, err := c.get(ctx, base+"/")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// get issues a GET and classifies failures. Non-2xx responses are
// returned as transport errors with the body closed.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTransport, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errs.Wrap(err, errs.CodeTimeout, "request timed out")
		}
		return nil, errs.Wrap(err, errs.CodeTransport, "request failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, errs.Newf(errs.CodeTransport, "server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}
