package form

import (
	"fmt"
	"strings"
)

// MaxUploadBytes is the hard cap on uploaded photo size.
const MaxUploadBytes = 5 << 20

// Upload is a pending image file attached to a draft.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadError is a locally detected upload precondition failure. It never
// reaches the store or the network.
type UploadError struct {
	Reason string
}

func (e *UploadError) Error() string {
	return e.Reason
}

// Validate fails fast when the file does not declare an image media type or
// exceeds the size cap.
func (u *Upload) Validate() error {
	if !strings.HasPrefix(u.ContentType, "image/") {
		return &UploadError{Reason: fmt.Sprintf("file %q is not an image (%s)", u.Filename, u.ContentType)}
	}
	if len(u.Data) > MaxUploadBytes {
		return &UploadError{Reason: fmt.Sprintf("file %q exceeds the 5 MiB limit", u.Filename)}
	}
	return nil
}
