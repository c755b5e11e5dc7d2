// Package upload relays a browser upload to the media host: it keeps a scratch
// copy of the file, negotiates signed parameters and posts the file upstream.
package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bbsrelay/service/internal/cookie"
	"github.com/bbsrelay/service/internal/mediahost"
)

// fallbackExt is used when neither the filename nor the content reveal a type.
const fallbackExt = "bin"

// MediaHost performs the two remote steps of an upload.
type MediaHost interface {
	GetUploadParams(ctx context.Context, jar cookie.Jar, req mediahost.ParamsRequest) (*mediahost.UploadParams, error)
	Upload(ctx context.Context, params *mediahost.UploadParams, ext, filename string, file io.Reader) (string, error)
}

// Stage is a step in handling one upload request.
type Stage int

const (
	StageReceived Stage = iota
	StageChecksummed
	StageParamsNegotiated
	StageUploaded
	StageSucceeded
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "RECEIVED"
	case StageChecksummed:
		return "CHECKSUMMED"
	case StageParamsNegotiated:
		return "PARAMS_NEGOTIATED"
	case StageUploaded:
		return "UPLOADED"
	case StageSucceeded:
		return "SUCCESS"
	case StageFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Request is one file to relay.
type Request struct {
	File     io.Reader
	Filename string
	Cookie   string
}

// Service contains the upload orchestration.
type Service struct {
	host       MediaHost
	fs         afero.Fs
	scratchDir string
	logger     *zap.Logger
}

// NewService creates a new upload Service. Scratch copies are written to
// scratchDir on fs.
func NewService(host MediaHost, fs afero.Fs, scratchDir string, logger *zap.Logger) *Service {
	return &Service{host: host, fs: fs, scratchDir: scratchDir, logger: logger.Named("upload")}
}

// Upload relays req to the media host and returns the public URL of the
// stored file. The scratch copy is removed on every return path.
func (s *Service) Upload(ctx context.Context, req Request) (url string, err error) {
	if req.File == nil || strings.TrimSpace(req.Cookie) == "" {
		return "", ErrMissingInput
	}

	jar := cookie.Parse(req.Cookie)
	log := s.logger.With(zap.String("filename", req.Filename), zap.String("account", jar.AccountID()))

	stage := StageReceived
	log.Debug("upload stage", zap.Stringer("stage", stage))
	advance := func(next Stage) {
		stage = next
		log.Debug("upload stage", zap.Stringer("stage", stage))
	}
	defer func() {
		if p := recover(); p != nil {
			reached := stage
			advance(StageFailed)
			log.Error("upload panicked", zap.Stringer("after", reached), zap.Any("panic", p))
			panic(p)
		}
		if err != nil {
			reached := stage
			advance(StageFailed)
			log.Warn("upload failed", zap.Stringer("after", reached), zap.Error(err))
		}
	}()

	scratch, err := createScratch(s.fs, s.scratchDir, req.File)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := scratch.Remove(); rmErr != nil {
			log.Error("scratch cleanup failed", zap.String("path", scratch.path), zap.Error(rmErr))
		}
	}()

	md5sum, err := s.checksum(scratch)
	if err != nil {
		return "", err
	}
	ext := extension(req.Filename, scratch.head)
	advance(StageChecksummed)

	params, err := s.host.GetUploadParams(ctx, jar, mediahost.ParamsRequest{MD5: md5sum, Ext: ext})
	if err != nil {
		return "", err
	}
	advance(StageParamsNegotiated)

	f, err := scratch.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	url, err = s.host.Upload(ctx, params, ext, req.Filename, f)
	if err != nil {
		return "", err
	}
	advance(StageUploaded)

	advance(StageSucceeded)
	log.Info("upload relayed", zap.String("url", url), zap.String("md5", md5sum))
	return url, nil
}

func (s *Service) checksum(scratch *scratchFile) (string, error) {
	f, err := scratch.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Checksum(f)
}

// extension returns the lowercased extension of filename, or a type sniffed
// from head when the name has none.
func extension(filename string, head []byte) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return strings.ToLower(filename[i+1:])
	}
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		return kind.Extension
	}
	return fallbackExt
}
