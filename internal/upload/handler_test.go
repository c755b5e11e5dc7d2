package upload

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bbsrelay/service/internal/response"
)

func multipartRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		part.Write([]byte(content))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(t *testing.T, h *Handler, req *http.Request) response.Envelope {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var env response.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
	}
	return env
}

func newTestHandler(host MediaHost, maxBytes int64) *Handler {
	return NewHandler(newTestService(host, afero.NewMemMapFs()), maxBytes, zap.NewNop())
}

func TestHandler_Success(t *testing.T) {
	host := &fakeHost{}
	env := serve(t, newTestHandler(host, 1<<20), multipartRequest(t, map[string]string{"cookie": "a=1"}, "pic.gif", "GIF89a"))

	if !env.Success || env.URL != "https://cdn.example.com/pic.gif?ext=gif" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(host.uploads) != 1 || host.uploads[0] != "GIF89a" {
		t.Fatalf("expected file forwarded, got %v", host.uploads)
	}
}

func TestHandler_MissingFields(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{"missing cookie", map[string]string{}, "a.png"},
		{"empty cookie", map[string]string{"cookie": ""}, "a.png"},
		{"missing file", map[string]string{"cookie": "a=1"}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host := &fakeHost{}
			env := serve(t, newTestHandler(host, 1<<20), multipartRequest(t, tc.fields, tc.filename, "data"))

			if env.Success || env.Error != "missing file or cookie" {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if len(host.paramsCalls) != 0 {
				t.Fatalf("expected no outbound calls")
			}
		})
	}
}

func TestHandler_IgnoresQueryCookie(t *testing.T) {
	host := &fakeHost{}
	req := multipartRequest(t, map[string]string{}, "a.png", "data")
	req.URL.RawQuery = "cookie=ltoken%3Dx"

	env := serve(t, newTestHandler(host, 1<<20), req)
	if env.Success || env.Error != "missing file or cookie" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(host.paramsCalls) != 0 {
		t.Fatalf("expected no outbound calls")
	}
}

func TestHandler_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"cookie":"a=1"}`))
	req.Header.Set("Content-Type", "application/json")

	env := serve(t, newTestHandler(&fakeHost{}, 1<<20), req)
	if env.Success || env.Error != ErrMissingInput.Error() {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestHandler_TooLarge(t *testing.T) {
	host := &fakeHost{}
	req := multipartRequest(t, map[string]string{"cookie": "a=1"}, "big.png", strings.Repeat("x", 4096))

	env := serve(t, newTestHandler(host, 512), req)
	if env.Success || env.Error != ErrTooLarge.Error() {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(host.paramsCalls) != 0 {
		t.Fatalf("expected no outbound calls")
	}
}

func TestHandler_RemoteFailureInBody(t *testing.T) {
	host := &fakeHost{paramsErr: errFixed("failed to get parameters: quota exceeded")}
	env := serve(t, newTestHandler(host, 1<<20), multipartRequest(t, map[string]string{"cookie": "a=1"}, "a.png", "x"))

	if env.Success || env.Error != "failed to get parameters: quota exceeded" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

type errFixed string

func (e errFixed) Error() string { return string(e) }
