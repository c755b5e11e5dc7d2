package mediahost

import "errors"

// Errors returned by Client. Each is wrapped with the detail reported by the
// remote side, so err.Error() is suitable for showing to the user.
var (
	ErrTransport     = errors.New("request failed")
	ErrHTTPStatus    = errors.New("HTTP error")
	ErrGetParams     = errors.New("failed to get parameters")
	ErrInvalidParams = errors.New("invalid upload parameters")
	ErrOSSHTTPStatus = errors.New("OSS HTTP error")
	ErrUploadFailed  = errors.New("upload failed")
)

const unknownError = "unknown error"
