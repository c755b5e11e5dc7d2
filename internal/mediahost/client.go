// Package mediahost talks to the community media host: it negotiates signed
// upload parameters and then posts the file straight to the storage endpoint.
package mediahost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bbsrelay/service/internal/cookie"
)

// Headers the negotiation endpoint requires before it accepts a request.
const (
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Trident/7.0; rv:11.0) like Gecko"
	appVersion = "2.96.0"
	origin     = "https://www.miyoushe.com"
	referer    = "https://www.miyoushe.com/"
)

// maxResponseBytes bounds how much of a JSON response is read.
const maxResponseBytes = 1 << 20

// Options configures a Client.
type Options struct {
	ParamsURL        string
	NegotiateTimeout time.Duration
	UploadTimeout    time.Duration
	// HTTPClient defaults to a fresh client without a global timeout; each
	// call is bounded by its own context deadline instead.
	HTTPClient *http.Client
}

// Client performs the two remote calls of an upload.
type Client struct {
	http             *http.Client
	paramsURL        string
	negotiateTimeout time.Duration
	uploadTimeout    time.Duration
	logger           *zap.Logger
}

// NewClient creates a new media host Client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		http:             hc,
		paramsURL:        opts.ParamsURL,
		negotiateTimeout: opts.NegotiateTimeout,
		uploadTimeout:    opts.UploadTimeout,
		logger:           logger.Named("mediahost"),
	}
}

// retcodeEnvelope is the top-level shape shared by both remote endpoints.
// Retcode is a pointer so that a missing code is treated as a failure.
type retcodeEnvelope struct {
	Retcode *int            `json:"retcode"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e *retcodeEnvelope) ok() bool {
	return e.Retcode != nil && *e.Retcode == 0
}

func (e *retcodeEnvelope) message() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	default:
		return unknownError
	}
}

// GetUploadParams asks the media host for signed upload parameters, authorized
// by the session cookies in jar.
func (c *Client) GetUploadParams(ctx context.Context, jar cookie.Jar, req ParamsRequest) (*UploadParams, error) {
	body, err := json.Marshal(newParamsRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("encode params request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.negotiateTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.paramsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build params request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("x-rpc-app_version", appVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", origin)
	httpReq.Header.Set("Referer", referer)
	jar.Apply(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("negotiation %w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	var env retcodeEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGetParams, err)
	}
	if !env.ok() {
		return nil, fmt.Errorf("%w: %s", ErrGetParams, env.message())
	}

	var data struct {
		Params *UploadParams `json:"params"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}
	if data.Params == nil {
		return nil, fmt.Errorf("%w: response carried no params", ErrInvalidParams)
	}
	if err := data.Params.Validate(); err != nil {
		return nil, err
	}

	c.logger.Debug("upload parameters negotiated",
		zap.String("host", data.Params.Host),
		zap.String("key", data.Params.Key()))
	return data.Params, nil
}

// Upload posts file to the storage endpoint named in params and returns the
// public URL of the stored asset. ext is the lowercased file extension used
// when params carry no content type.
func (c *Client) Upload(ctx context.Context, params *UploadParams, ext, filename string, file io.Reader) (string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := writeUploadForm(w, params, ext, filename, file); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.uploadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, params.Host, body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("OSS %w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrOSSHTTPStatus, resp.StatusCode)
	}

	var env retcodeEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if !env.ok() {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, env.message())
	}

	var data struct {
		URL string `json:"url"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", fmt.Errorf("%w: decode data: %v", ErrUploadFailed, err)
		}
	}
	if data.URL == "" {
		return "", fmt.Errorf("%w: response carried no url", ErrUploadFailed)
	}
	return data.URL, nil
}

// writeUploadForm writes the signed form fields in the order the storage
// endpoint checks them, then the file as the final part.
func writeUploadForm(w *multipart.Writer, p *UploadParams, ext, filename string, file io.Reader) error {
	contentType := p.ContentType
	if contentType == "" {
		contentType = "image/" + ext
	}
	acl := p.ObjectACL
	if acl == "" {
		acl = DefaultObjectACL
	}

	fields := []FormField{
		{Key: "name", Value: p.Name},
		{Key: "key", Value: p.Key()},
		{Key: "callback", Value: p.Callback},
		{Key: "success_action_status", Value: "200"},
		{Key: callbackExtraField, Value: p.CallbackVar[callbackExtraField]},
		{Key: "x-oss-content-type", Value: contentType},
	}
	fields = append(fields, p.ExtraForm...)
	fields = append(fields,
		FormField{Key: "OSSAccessKeyId", Value: p.AccessID},
		FormField{Key: "policy", Value: p.Policy},
		FormField{Key: "signature", Value: p.Signature},
		FormField{Key: "x-oss-object-acl", Value: acl},
	)

	for _, f := range fields {
		if err := w.WriteField(f.Key, f.Value); err != nil {
			return fmt.Errorf("write field %q: %w", f.Key, err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	return w.Close()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
