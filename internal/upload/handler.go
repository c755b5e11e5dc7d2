package upload

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bbsrelay/service/internal/response"
)

// maxMultipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const maxMultipartMemory = 32 << 20

// Handler holds the HTTP handler for the upload endpoint.
type Handler struct {
	svc      *Service
	maxBytes int64
	logger   *zap.Logger
}

// NewHandler creates a new upload Handler. Request bodies larger than
// maxBytes are rejected.
func NewHandler(svc *Service, maxBytes int64, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, maxBytes: maxBytes, logger: logger.Named("upload.http")}
}

// Upload godoc
//
//	@Summary		Relay an upload
//	@Description	Forwards the file to the media host using the session cookies and returns the public URL. Failures are reported in the body with HTTP 200.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Param			cookie	formData	string	true	"Session cookie string"
//	@Success		200		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Failed(w, ErrTooLarge.Error())
			return
		}
		h.logger.Debug("unreadable upload form", zap.Error(err))
		response.Failed(w, ErrMissingInput.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	cookieStr := r.PostFormValue("cookie")
	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" || cookieStr == "" {
		if file != nil {
			file.Close()
		}
		response.Failed(w, ErrMissingInput.Error())
		return
	}
	defer file.Close()

	url, err := h.svc.Upload(r.Context(), Request{
		File:     file,
		Filename: header.Filename,
		Cookie:   cookieStr,
	})
	if err != nil {
		response.Failed(w, err.Error())
		return
	}

	response.Uploaded(w, url)
}
