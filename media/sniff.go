// Package media gates and prepares binary attachments before upload.
package media

import (
	"strings"

	"kaichat/domain"
	"kaichat/errors"

	"github.com/gabriel-vasile/mimetype"
)

// Sniff detects the payload's MIME type from its content and maps the
// top-level category to a message kind. Anything that is not an image
// or a video is rejected; the declared filename is never trusted.
func Sniff(data []byte) (domain.MessageKind, error) {
	detected := mimetype.Detect(data)
	category, _, found := strings.Cut(detected.String(), "/")
	if !found {
		return "", errors.ErrUnsupportedMediaType
	}
	switch category {
	case "image":
		return domain.KindImage, nil
	case "video":
		return domain.KindVideo, nil
	default:
		return "", errors.ErrUnsupportedMediaType
	}
}
