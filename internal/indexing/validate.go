package indexing

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
)

const (
	maxFilenameLength    = 255
	maxTitleLength       = 1024
	maxDescriptionLength = 4096

	docTypePlain    = "text/plain"
	docTypeMarkdown = "text/markdown"
)

// ValidationError holds per-field validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func validateMeta(filename, title, description string) error {
	errs := make(map[string]string)
	switch {
	case strings.TrimSpace(filename) == "":
		errs["filename"] = "filename is required"
	case len(filename) > maxFilenameLength:
		errs["filename"] = fmt.Sprintf("filename must be at most %d bytes", maxFilenameLength)
	case strings.ContainsAny(filename, "/\\") || filename == "." || filename == "..":
		errs["filename"] = "filename must not contain path separators"
	}
	if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	if len(description) > maxDescriptionLength {
		errs["description"] = fmt.Sprintf("description must be at most %d bytes", maxDescriptionLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// detectDocType checks data is UTF-8 plain text and names its type.
// Declared types other than plain text, markdown or a generic byte stream
// are refused.
func detectDocType(filename, declared string, data []byte) (string, error) {
	declaredType := ""
	if declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", apperrors.Newf(apperrors.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "malformed content type %q", declared)
		}
		declaredType = mt
	}
	switch declaredType {
	case "", "application/octet-stream", docTypePlain, docTypeMarkdown, "text/x-markdown":
	default:
		return "", apperrors.Newf(apperrors.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "content type %s is not indexable", declaredType)
	}

	detected := mimetype.Detect(data)
	if !detected.Is(docTypePlain) {
		return "", apperrors.Newf(apperrors.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "%s looks like %s, only plain text is indexed", filename, detected.String())
	}
	if !utf8.Valid(data) {
		return "", apperrors.Newf(apperrors.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "%s is not valid UTF-8", filename)
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".md", ".markdown":
		return docTypeMarkdown, nil
	}
	if declaredType == docTypeMarkdown || declaredType == "text/x-markdown" {
		return docTypeMarkdown, nil
	}
	return docTypePlain, nil
}
