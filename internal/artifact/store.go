// Package artifact serves rendered videos from the output directory with
// byte-range support, so completed renders can be streamed or downloaded.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideStore is returned when a stored output path escapes the output
// directory. Paths come from our own database, but a corrupted or tampered
// row must not become a file read anywhere on disk.
var ErrOutsideStore = errors.New("artifact path outside output directory")

type Store struct {
	outputDir string
	logger    *slog.Logger
}

func NewStore(outputDir string, logger *slog.Logger) *Store {
	return &Store{outputDir: outputDir, logger: logger}
}

// Resolve validates that path stays inside the output directory and returns
// its absolute form.
func (s *Store) Resolve(path string) (string, error) {
	root, err := filepath.Abs(s.outputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output dir: %w", err)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", ErrOutsideStore
	}
	return abs, nil
}

// ServeFile streams the artifact at path, honoring a single bytes range.
func (s *Store) ServeFile(w http.ResponseWriter, r *http.Request, path string) error {
	resolved, err := s.Resolve(path)
	if err != nil {
		if errors.Is(err, ErrOutsideStore) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(resolved))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(resolved)))

	rangeHeader := r.Header.Get("Range")
	parsedRange, err := ParseRange(rangeHeader, size)

	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	// Invalid range headers fall through to a full response.
	if err != nil && err != ErrInvalidRange {
		return err
	}

	if parsedRange == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", parsedRange.ContentLength()))
	w.Header().Set("Content-Range", parsedRange.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(parsedRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	io.CopyN(w, file, parsedRange.ContentLength())
	return nil
}
