package transcription

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

const defaultExt = ".mp3"

var extRe = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// WithTempFile copies src into a uniquely named file under dir, runs fn with
// its path and removes the file before returning, whatever fn returned.
// The file is complete and closed before fn runs.
func WithTempFile(dir, filename string, src io.Reader, fn func(path string) error) error {
	path := filepath.Join(dir, "subgenie-"+uuid.NewString()+uploadExt(filename))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return internalError("could not store upload", err)
	}
	defer removeTemp(path)

	_, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr != nil {
		var maxErr *http.MaxBytesError
		if errors.As(copyErr, &maxErr) {
			return uploadError(http.StatusRequestEntityTooLarge, "uploaded file is too large", copyErr)
		}
		return uploadError(http.StatusBadRequest, "could not read uploaded file", copyErr)
	}
	if closeErr != nil {
		return internalError("could not store upload", closeErr)
	}

	return fn(path)
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove temp upload", "path", path, "error", err)
	}
}

// uploadExt keeps the client's extension so backends can sniff the format.
func uploadExt(filename string) string {
	ext := filepath.Ext(filename)
	if !extRe.MatchString(ext) {
		return defaultExt
	}
	return ext
}
