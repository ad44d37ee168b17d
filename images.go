package edupress

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// IsImageFile reports whether name has an accepted image extension. Other
// uploads are ignored rather than rejected.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// VerifyImage checks that data decodes as an image in a registered format.
func VerifyImage(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("file %s is empty", name)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("file %s is not a valid image", name)
	}
	return nil
}
