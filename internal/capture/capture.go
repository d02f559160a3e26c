package capture

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"medichat-client/internal/models"
)

// Capture errors. These surface as silent no-ops or inline notices at the
// API layer, never as fatal failures.
var (
	ErrEmptyInput    = errors.New("capture: empty input")
	ErrNoFile        = errors.New("capture: no image file provided")
	ErrBadImageType  = errors.New("capture: invalid file type, only .jpg, .jpeg, .png are allowed")
	ErrImageTooLarge = errors.New("capture: image exceeds the maximum allowed size")
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

	allowedImageExts = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
)

// Text normalizes typed or dictated text into an Input. Whitespace-only
// input is rejected with ErrEmptyInput. HTML tags are stripped and the
// query is capped at maxLen runes before dispatch.
func Text(s string, maxLen int) (models.Input, error) {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Input{}, ErrEmptyInput
	}
	if maxLen > 0 {
		if runes := []rune(s); len(runes) > maxLen {
			s = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return models.Input{Type: models.InputText, Value: s}, nil
}

// ImageFile normalizes a user-chosen image file into an Input. The file
// extension allow-list and size cap match what the backend accepts.
func ImageFile(filename string, r io.Reader, maxSize int64) (models.Input, error) {
	if filename == "" || r == nil {
		return models.Input{}, ErrNoFile
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExts[ext] {
		return models.Input{}, ErrBadImageType
	}

	limit := maxSize
	if limit <= 0 {
		limit = 10 << 20
	}
	blob, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return models.Input{}, err
	}
	if len(blob) == 0 {
		return models.Input{}, ErrNoFile
	}
	if int64(len(blob)) > limit {
		return models.Input{}, ErrImageTooLarge
	}

	return models.Input{
		Type:     models.InputImage,
		Blob:     blob,
		MimeType: http.DetectContentType(blob),
		Filename: filepath.Base(filename),
	}, nil
}
