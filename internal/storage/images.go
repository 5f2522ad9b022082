// Package storage keeps uploaded listing images on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var AllowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var (
	ErrUnsupportedType = errors.New("unsupported file type, please upload an image")
	ErrInvalidFilename = errors.New("invalid filename")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// ImageStore writes images into a single flat directory
type ImageStore struct {
	dir    string
	logger *logrus.Logger
}

func NewImageStore(dir string, logger *logrus.Logger) (*ImageStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &ImageStore{dir: dir, logger: logger}, nil
}

func (s *ImageStore) Dir() string {
	return s.dir
}

// Allowed reports whether the filename has an accepted image extension
func Allowed(filename string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SecureFilename reduces a client-supplied name to a safe ASCII base name.
// Accents are folded, other characters become underscores.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, name); err == nil {
		name = folded
	}

	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Save stores the image under a sanitised name, adding _1, _2 ... when the
// name is taken. It returns the stored filename.
func (s *ImageStore) Save(filename string, r io.Reader) (string, error) {
	if !Allowed(filename) {
		return "", ErrUnsupportedType
	}
	name := SecureFilename(filename)
	if name == "" || !Allowed(name) {
		return "", ErrInvalidFilename
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	var (
		f   *os.File
		err error
	)
	for counter := 0; ; counter++ {
		if counter > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, counter, ext)
		}
		// O_EXCL makes the existence check and create one step
		f, err = os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to create image file: %w", err)
		}
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.WithField("filename", name).Info("Stored listing image")
	return name, nil
}

// Remove deletes a stored image. A file that is already gone is not an error.
func (s *ImageStore) Remove(filename string) error {
	if filename != filepath.Base(filename) {
		return ErrInvalidFilename
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
