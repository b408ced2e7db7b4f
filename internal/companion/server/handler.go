package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/msto63/signspeak/internal/companion/settings"
	"github.com/msto63/signspeak/pkg/core/errs"
	"github.com/msto63/signspeak/pkg/core/health"
	"github.com/msto63/signspeak/pkg/core/logging"
	"github.com/msto63/signspeak/pkg/core/version"
)

const maxBodyBytes = 64 * 1024

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SpeakRequest is the body of POST /speak
type SpeakRequest struct {
	Text string `json:"text"`
}

// AddressRequest is the body of POST /connect and POST /probe
type AddressRequest struct {
	Address string `json:"address"`
}

// ProbeResponse reports a liveness check
type ProbeResponse struct {
	Address string `json:"address"`
	Online  bool   `json:"online"`
	Error   string `json:"error,omitempty"`
}

type handler struct {
	engine  Engine
	health  *health.Registry
	logger  *logging.Logger
	version string
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := h.health.Check(ctx)
	writeJSON(w, report.HTTPStatus(), report)
}

func (h *handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot().Log)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    h.version,
		"build_time": version.BuildTime,
		"git_commit": version.GitCommit,
	})
}

func (h *handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "invalid_request", "No settings given")
		return
	}

	s, err := h.engine.UpdateSettings(patch)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.RequestSpeak(req.Text); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Connect(req.Address); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) handleDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.EnterDemoMode(); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) handleProbe(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		address = h.engine.Snapshot().Address
	}

	resp := ProbeResponse{Address: address, Online: true}
	if err := h.engine.TestConnection(r.Context(), address); err != nil {
		resp.Online = false
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeEngineError maps engine errors to status codes
func (h *handler) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.GetCode(err) {
	case errs.CodeInvalidSettings:
		status = http.StatusBadRequest
	case errs.CodeCancelled:
		status = http.StatusServiceUnavailable
	case errs.CodeTimeout:
		status = http.StatusGatewayTimeout
	case errs.CodeTransport:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
	}
	writeError(w, status, strings.ToLower(errs.GetCode(err).String()), err.Error())
}

// decodeBody decodes a JSON body into v, answering 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
