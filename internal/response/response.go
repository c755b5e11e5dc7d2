// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the upload API response. Failures are reported in the body,
// not through the status code.
type Envelope struct {
	Success bool   `json:"success" example:"true"`
	URL     string `json:"url,omitempty" example:"https://upload-bbs.miyoushe.com/upload/2026/10/19/abc.png"`
	Error   string `json:"error,omitempty" example:"failed to get parameters: quota exceeded"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Uploaded writes a 200 success envelope carrying url.
func Uploaded(w http.ResponseWriter, url string) {
	JSON(w, http.StatusOK, Envelope{Success: true, URL: url})
}

// Failed writes a 200 failure envelope carrying message.
func Failed(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, Envelope{Success: false, Error: message})
}

// Error writes an error envelope with the given status. Only used outside the
// upload API, where a status code is meaningful.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Error: message})
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}
