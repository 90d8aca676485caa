package validation

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "go-text-extractor/internal/errors"
)

// sniffLen is how many leading bytes are inspected to detect the real content type
const sniffLen = 3072

// UploadValidator decides whether an uploaded file part may be staged
type UploadValidator struct {
	allowedPrefix string
	verifyContent bool
}

// NewUploadValidator creates a validator that only trusts the declared content type
func NewUploadValidator() *UploadValidator {
	return &UploadValidator{allowedPrefix: "image/"}
}

// NewUploadValidatorWithOptions creates a validator that can additionally
// require the file bytes themselves to look like an image
func NewUploadValidatorWithOptions(verifyContent bool) *UploadValidator {
	v := NewUploadValidator()
	v.verifyContent = verifyContent
	return v
}

// ValidateContentType accepts a declared MIME type only if it starts with
// image/. The comparison is case-sensitive.
func (v *UploadValidator) ValidateContentType(declared string) error {
	if !strings.HasPrefix(declared, v.allowedPrefix) {
		return apperrors.ErrNotImage
	}
	return nil
}

// Inspect detects the content type of r from its leading bytes. The returned
// reader yields the full, unconsumed stream. When content verification is on,
// a non-image payload is rejected before anything is written.
func (v *UploadValidator) Inspect(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	header, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", err
	}

	detected := mimetype.Detect(header)
	if v.verifyContent && !strings.HasPrefix(detected.String(), v.allowedPrefix) {
		return nil, detected.String(), apperrors.ErrNotImage
	}
	return br, detected.String(), nil
}
