package upload

import (
	"crypto/md5"
	"encoding/hex"
	"io"
)

const checksumChunkSize = 4096

// Checksum returns the hex-encoded MD5 digest of everything read from r.
// The input is streamed in fixed-size chunks and never held in memory whole.
func Checksum(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, checksumChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
