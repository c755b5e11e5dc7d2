package upload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// sniffLen is how many leading bytes content-type detection looks at.
const sniffLen = 261

// scratchFile is the short-lived local copy of one uploaded file.
type scratchFile struct {
	fs   afero.Fs
	path string
	// head holds the first sniffLen bytes of the content, or fewer for
	// shorter files.
	head []byte
}

// createScratch copies src into a uniquely named file under dir. On error no
// file is left behind.
func createScratch(fs afero.Fs, dir string, src io.Reader) (*scratchFile, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", ErrScratch, err)
	}

	path := filepath.Join(dir, "bbsrelay-"+uuid.NewString())
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", ErrScratch, err)
	}

	br := bufio.NewReaderSize(src, sniffLen)
	head, _ := br.Peek(sniffLen)
	head = append([]byte(nil), head...)

	_, copyErr := io.Copy(f, br)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = fs.Remove(path)
		return nil, fmt.Errorf("%w: write: %v", ErrScratch, err)
	}

	return &scratchFile{fs: fs, path: path, head: head}, nil
}

// Open returns a reader over the scratch copy. Read failures are reported as
// ErrScratch so they stay distinguishable once wrapped by callers.
func (s *scratchFile) Open() (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrScratch, err)
	}
	return &scratchReader{f: f}, nil
}

// Remove deletes the scratch copy. Removing an already missing file is not an error.
func (s *scratchFile) Remove() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove: %v", ErrScratch, err)
	}
	return nil
}

type scratchReader struct {
	f afero.File
}

func (r *scratchReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: read: %v", ErrScratch, err)
	}
	return n, err
}

func (r *scratchReader) Close() error {
	return r.f.Close()
}
