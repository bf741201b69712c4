package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"label-catalog-api/pkg/apperr"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type Folder string

const (
	FolderImages Folder = "images"
	FolderAudio  Folder = "audio"
	FolderCovers Folder = "covers"
)

// MaxUploadSize is the largest accepted object, in bytes.
const MaxUploadSize = 50 << 20

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/mp3":  true,
}

// Gateway stores uploaded media and hands back stable public URLs.
type Gateway interface {
	Upload(ctx context.Context, data []byte, fileName string, folder Folder, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
	Exists(ctx context.Context, url string) (bool, error)
}

// Prober checks URLs that do not belong to the configured store.
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
}

func ParseFolder(s string) (Folder, error) {
	switch f := Folder(s); f {
	case FolderImages, FolderAudio, FolderCovers:
		return f, nil
	}
	return "", fmt.Errorf("%w: folder must be one of images, audio, covers", apperr.ErrInvalid)
}

// CheckUpload enforces the size and type rules shared by every backend and
// returns the content type to store. An empty content type is sniffed.
func CheckUpload(data []byte, folder Folder, contentType string) (string, error) {
	if _, err := ParseFolder(string(folder)); err != nil {
		return "", err
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("%w: maximum size is 50MB", apperr.ErrPayloadTooLarge)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", apperr.ErrInvalid)
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !allowedTypes[contentType] {
		return "", fmt.Errorf("%w: %q (allowed: JPEG, PNG, WEBP, GIF, MP3, WAV)", apperr.ErrUnsupportedType, contentType)
	}
	return contentType, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

func SanitizeFileName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" {
		return "file"
	}
	return name
}

// ObjectKey builds folder/<unix-millis>-<random>-<name>.
func ObjectKey(folder Folder, fileName string, now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s/%d-%s-%s", folder, now.UnixMilli(), suffix, SanitizeFileName(fileName))
}

// Unavailable stands in for a backend that failed to initialize so the rest
// of the API keeps serving. Every call returns Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Upload(ctx context.Context, data []byte, fileName string, folder Folder, contentType string) (string, error) {
	return "", u.Err
}

func (u Unavailable) Delete(ctx context.Context, url string) error {
	return u.Err
}

func (u Unavailable) Exists(ctx context.Context, url string) (bool, error) {
	return false, u.Err
}
