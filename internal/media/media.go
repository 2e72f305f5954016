// Package media stores and removes uploaded image attachments for
// tools and user profiles. Files are validated by content sniffing,
// written under a type-specific directory, and referenced everywhere
// else by relative paths like /uploads/tools/<name>.
package media

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Kind selects the storage directory and size ceiling for an upload.
type Kind string

const (
	KindToolImage      Kind = "tools"
	KindProfilePicture Kind = "profiles"
)

const (
	defaultUploadsBasePath          = "./uploads"
	defaultMaxToolImageBytes  int64 = 5 * 1024 * 1024
	defaultMaxProfileBytes    int64 = 2 * 1024 * 1024
	sniffLen                        = 512
	relativePathPrefix              = "/uploads/"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("file is too large")
	ErrEmptyFile       = errors.New("file is empty")
)

var allowedImageMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

func normalizeMimeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return normalized
}

func isAllowedImageMimeType(raw string) bool {
	_, ok := allowedImageMimeTypes[normalizeMimeType(raw)]
	return ok
}

// UploadsBasePath returns the root directory for stored files.
func UploadsBasePath() string {
	value := strings.TrimSpace(os.Getenv("HOBBYSHELF_UPLOADS_PATH"))
	if value == "" {
		return defaultUploadsBasePath
	}
	return value
}

// MaxBytes returns the per-file size ceiling for a kind.
func MaxBytes(kind Kind) int64 {
	switch kind {
	case KindProfilePicture:
		return resolvePositiveInt64Env("HOBBYSHELF_MAX_PROFILE_IMAGE_BYTES", defaultMaxProfileBytes)
	default:
		return resolvePositiveInt64Env("HOBBYSHELF_MAX_TOOL_IMAGE_BYTES", defaultMaxToolImageBytes)
	}
}

func resolvePositiveInt64Env(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	var value int64
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil || value <= 0 {
		return fallback
	}

	return value
}

// Validate checks an uploaded file against the size ceiling and the
// image allow-list without storing anything. The MIME type comes from
// the file content, never from the client-supplied header.
func Validate(header *multipart.FileHeader, kind Kind) error {
	if header.Size > MaxBytes(kind) {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, header.Filename, MaxBytes(kind))
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	buffer := make([]byte, sniffLen)
	bytesRead, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return err
	}
	if bytesRead == 0 {
		return ErrEmptyFile
	}

	detected := normalizeMimeType(mimetype.Detect(buffer[:bytesRead]).String())
	if !isAllowedImageMimeType(detected) {
		return fmt.Errorf("%w: %s detected as %s", ErrUnsupportedType, header.Filename, detected)
	}

	return nil
}

// Store writes an already-validated upload to disk and returns its
// relative path. The written size is re-checked against the ceiling in
// case the multipart header lied about it.
func Store(header *multipart.FileHeader, kind Kind) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	uploadDir := filepath.Join(UploadsBasePath(), string(kind))
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", err
	}

	storedName := buildStoredName(header.Filename)
	tempFile, err := os.CreateTemp(uploadDir, ".incoming-*"+filepath.Ext(storedName))
	if err != nil {
		return "", err
	}

	tempPath := tempFile.Name()
	defer func() {
		if tempPath != "" {
			_ = os.Remove(tempPath)
		}
	}()

	written, err := io.Copy(tempFile, io.LimitReader(file, MaxBytes(kind)+1))
	if err != nil {
		_ = tempFile.Close()
		return "", err
	}
	if err := tempFile.Close(); err != nil {
		return "", err
	}
	if written == 0 {
		return "", ErrEmptyFile
	}
	if written > MaxBytes(kind) {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, header.Filename, MaxBytes(kind))
	}

	finalPath := filepath.Join(uploadDir, storedName)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", err
	}
	if err := os.Chmod(finalPath, 0o644); err != nil {
		_ = os.Remove(finalPath)
		return "", err
	}
	tempPath = ""

	return relativePathPrefix + string(kind) + "/" + storedName, nil
}

// Remove deletes a stored file by its relative path. Removing a file
// that is already gone is a no-op; only real filesystem failures are
// reported, and callers treat those as log-worthy, not fatal.
func Remove(relativePath string) error {
	absolute, ok := AbsolutePath(relativePath)
	if !ok {
		log.Printf("Refusing to remove path outside uploads dir: %s", relativePath)
		return nil
	}

	if err := os.Remove(absolute); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// RemoveAll removes a set of stored files, logging failures.
func RemoveAll(relativePaths []string) {
	for _, relativePath := range relativePaths {
		if relativePath == "" {
			continue
		}
		if err := Remove(relativePath); err != nil {
			log.Printf("Error deleting file %s: %v", relativePath, err)
		}
	}
}

// AbsolutePath resolves a stored relative path against the uploads
// root, rejecting anything that escapes it.
func AbsolutePath(relativePath string) (string, bool) {
	trimmed := strings.TrimPrefix(relativePath, relativePathPrefix)
	if trimmed == relativePath || trimmed == "" {
		return "", false
	}

	root := filepath.Clean(UploadsBasePath())
	candidate := filepath.Clean(filepath.Join(root, filepath.FromSlash(trimmed)))

	relative, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", false
	}
	if relative == "." || strings.HasPrefix(relative, "..") {
		return "", false
	}

	return candidate, true
}

func buildStoredName(originalName string) string {
	base := sanitizeFilename(filepath.Base(originalName))
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.NewString()[:8], base)
}

func sanitizeFilename(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))

	safe = strings.Trim(safe, ".")
	if safe == "" {
		return "file"
	}
	if len(safe) > 120 {
		safe = safe[len(safe)-120:]
	}
	return safe
}
