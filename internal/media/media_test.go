package media

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	jpegBytes = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF"), bytes.Repeat([]byte{0}, 64)...)
	gifBytes  = append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 64)...)
)

func fileHeaderFor(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	headers := req.MultipartForm.File["file"]
	require.Len(t, headers, 1)
	return headers[0]
}

func useTempUploadsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOBBYSHELF_UPLOADS_PATH", dir)
	return dir
}

func TestValidateAcceptsAllowedImageTypes(t *testing.T) {
	useTempUploadsDir(t)

	assert.NoError(t, Validate(fileHeaderFor(t, "a.png", pngBytes), KindToolImage))
	assert.NoError(t, Validate(fileHeaderFor(t, "b.jpg", jpegBytes), KindToolImage))
	assert.NoError(t, Validate(fileHeaderFor(t, "c.png", pngBytes), KindProfilePicture))
}

func TestValidateSniffsContentNotFilename(t *testing.T) {
	useTempUploadsDir(t)

	// GIF content behind an innocent extension is still rejected.
	err := Validate(fileHeaderFor(t, "looks-fine.png", gifBytes), KindToolImage)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	// Executable-looking content is rejected regardless of name.
	err = Validate(fileHeaderFor(t, "image.jpg", []byte("#!/bin/sh\necho hi\n")), KindToolImage)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	useTempUploadsDir(t)

	err := Validate(fileHeaderFor(t, "empty.png", nil), KindToolImage)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	useTempUploadsDir(t)
	t.Setenv("HOBBYSHELF_MAX_TOOL_IMAGE_BYTES", "100")

	big := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 200)...)
	err := Validate(fileHeaderFor(t, "big.png", big), KindToolImage)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestMaxBytesPerKind(t *testing.T) {
	assert.Equal(t, int64(5*1024*1024), MaxBytes(KindToolImage))
	assert.Equal(t, int64(2*1024*1024), MaxBytes(KindProfilePicture))
}

func TestStoreWritesFileAndReturnsRelativePath(t *testing.T) {
	dir := useTempUploadsDir(t)

	relative, err := Store(fileHeaderFor(t, "my photo.png", pngBytes), KindToolImage)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(relative, "/uploads/tools/"), "got %s", relative)
	assert.NotContains(t, relative, " ")

	absolute, ok := AbsolutePath(relative)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(absolute, dir))

	content, err := os.ReadFile(absolute)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)

	// No leftover temp files.
	entries, err := os.ReadDir(filepath.Join(dir, "tools"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRemoveIsIdempotent(t *testing.T) {
	useTempUploadsDir(t)

	relative, err := Store(fileHeaderFor(t, "a.png", pngBytes), KindToolImage)
	require.NoError(t, err)

	require.NoError(t, Remove(relative))

	absolute, ok := AbsolutePath(relative)
	require.True(t, ok)
	_, statErr := os.Stat(absolute)
	assert.True(t, os.IsNotExist(statErr))

	// Second removal of the same path succeeds.
	assert.NoError(t, Remove(relative))
}

func TestRemoveRefusesPathsOutsideUploadsDir(t *testing.T) {
	dir := useTempUploadsDir(t)

	secret := filepath.Join(dir, "..", "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("keep"), 0o644))

	assert.NoError(t, Remove("/uploads/../secret.txt"))
	assert.NoError(t, Remove("/etc/passwd"))
	assert.NoError(t, Remove("relative/path.png"))

	_, err := os.Stat(secret)
	assert.NoError(t, err, "file outside the uploads dir must survive")
}

func TestRemoveAllSkipsEmptyEntries(t *testing.T) {
	useTempUploadsDir(t)

	first, err := Store(fileHeaderFor(t, "a.png", pngBytes), KindToolImage)
	require.NoError(t, err)
	second, err := Store(fileHeaderFor(t, "b.jpg", jpegBytes), KindToolImage)
	require.NoError(t, err)

	RemoveAll([]string{first, "", second})

	for _, relative := range []string{first, second} {
		absolute, ok := AbsolutePath(relative)
		require.True(t, ok)
		_, statErr := os.Stat(absolute)
		assert.True(t, os.IsNotExist(statErr), "expected %s to be gone", relative)
	}
}

func TestAbsolutePathRejectsTraversal(t *testing.T) {
	useTempUploadsDir(t)

	for _, relative := range []string{
		"/uploads/../outside.png",
		"/uploads/tools/../../outside.png",
		"/uploads/",
		"plain.png",
		"",
	} {
		_, ok := AbsolutePath(relative)
		assert.False(t, ok, "relative=%q", relative)
	}

	_, ok := AbsolutePath("/uploads/tools/ok.png")
	assert.True(t, ok)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_photo.png", sanitizeFilename("my photo.png"))
	assert.Equal(t, "a_b_.jpg", sanitizeFilename("a/b?.jpg"))
	assert.Equal(t, "file", sanitizeFilename("...."))
	assert.Equal(t, "file", sanitizeFilename(""))
}
