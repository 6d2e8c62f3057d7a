// Package restapi defines the JSON bodies of the HTTP session API served by
// pkg/server and spoken by mcpclient.RESTDialer.
//
//	POST   /session               CreateSessionRequest -> 201 CreateSessionResponse
//	POST   /session/{id}/{tool}   tool arguments       -> 200 ToolResponse (4xx/5xx on failure)
//	DELETE /session/{id}                               -> 204
package restapi

import "strings"

// SessionsPath is the collection path of the session API.
const SessionsPath = "/session"

// Viewport is a browser viewport size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CreateSessionRequest carries the browser launch options for a new session.
type CreateSessionRequest struct {
	BrowserType string    `json:"browserType,omitempty"`
	Headless    *bool     `json:"headless,omitempty"`
	Viewport    *Viewport `json:"viewport,omitempty"`
}

// CreateSessionResponse returns the id of a new session.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// Image is base64 encoded on the wire.
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// ToolResponse is the outcome of one tool call.
type ToolResponse struct {
	Success bool    `json:"success"`
	Text    string  `json:"text,omitempty"`
	Images  []Image `json:"images,omitempty"`
	Data    any     `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
	Code    string  `json:"code,omitempty"`
}

// SessionPath returns the path of one session.
func SessionPath(id string) string {
	return SessionsPath + "/" + id
}

// ToolPath returns the path a tool is invoked on within a session.
func ToolPath(id, tool string) string {
	return SessionPath(id) + "/" + strings.TrimPrefix(tool, "/")
}
