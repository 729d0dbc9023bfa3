package storage

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultImageType is used when an image's type cannot be detected.
const DefaultImageType = "image/jpeg"

// ImageContentType detects the image type of the file at localPath from its
// content, falling back to DefaultImageType for anything not recognized as an image.
func ImageContentType(localPath string) string {
	mtype, err := mimetype.DetectFile(localPath)
	if err != nil || !strings.HasPrefix(mtype.String(), "image/") {
		return DefaultImageType
	}
	return mtype.String()
}
