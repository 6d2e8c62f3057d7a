package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/entrhq/forge-playwright/pkg/browser"
	"github.com/entrhq/forge-playwright/pkg/restapi"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxRequestBytes caps request bodies of the session API.
const maxRequestBytes = 1 << 20

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req restapi.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeToolError(w, http.StatusBadRequest, invalidArg("invalid request body: %v", err))
		return
	}

	d := s.factory()
	if launch := launchArgs(req); launch != nil {
		if _, err := s.Call(r.Context(), d, "start-browser", launch); err != nil {
			_ = d.Close()
			te := asToolError(err)
			writeToolError(w, statusFor(te), te)
			return
		}
	}

	id := uuid.NewString()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = d.Close()
		writeToolError(w, http.StatusServiceUnavailable, &ToolError{Code: CodeBrowser, Message: "server is shutting down"})
		return
	}
	s.sessions[id] = d
	s.mu.Unlock()

	debugLog.Infof("session %s created", id)
	writeJSON(w, http.StatusCreated, restapi.CreateSessionResponse{SessionID: id})
}

// callSessionTool handles POST /session/{id}/{tool}
func (s *Server) callSessionTool(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, ok := s.session(vars["id"])
	if !ok {
		writeToolError(w, http.StatusNotFound, &ToolError{Code: CodeSessionNotFound, Message: "session not found"})
		return
	}

	args := map[string]any{}
	if err := decodeBody(r, &args); err != nil {
		writeToolError(w, http.StatusBadRequest, invalidArg("arguments must be a JSON object: %v", err))
		return
	}

	out, err := s.Call(r.Context(), d, vars["tool"], args)
	if err != nil {
		te := asToolError(err)
		writeToolError(w, statusFor(te), te)
		return
	}

	resp := restapi.ToolResponse{Success: true, Text: out.Text}
	for _, img := range out.Images {
		resp.Images = append(resp.Images, restapi.Image{Data: img.Data, MIMEType: img.MIMEType})
	}
	if out.Data != nil {
		resp.Data = out.Data
	}
	writeJSON(w, http.StatusOK, resp)
}

// deleteSession handles DELETE /session/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	d, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeToolError(w, http.StatusNotFound, &ToolError{Code: CodeSessionNotFound, Message: "session not found"})
		return
	}
	if err := d.Close(); err != nil {
		debugLog.Warnf("session %s closed with error: %v", id, err)
	}
	debugLog.Infof("session %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// health handles GET /healthz
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.Sessions()),
		"tools":    s.ToolNames(),
	})
}

func (s *Server) session(id string) (browser.Driver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.sessions[id]
	return d, ok
}

// launchArgs converts a session request into start-browser arguments, or
// nil when the request asks for nothing specific.
func launchArgs(req restapi.CreateSessionRequest) map[string]any {
	args := map[string]any{}
	if req.BrowserType != "" {
		args["browserType"] = req.BrowserType
	}
	if req.Headless != nil {
		args["headless"] = *req.Headless
	}
	if req.Viewport != nil {
		args["viewport"] = map[string]any{"width": req.Viewport.Width, "height": req.Viewport.Height}
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func statusFor(te *ToolError) int {
	switch te.Code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnknownTool, CodeSessionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeToolError(w http.ResponseWriter, status int, te *ToolError) {
	writeJSON(w, status, restapi.ToolResponse{Success: false, Error: te.Message, Code: te.Code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debugLog.Warnf("failed to write response: %v", err)
	}
}
