package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// MaxSide is the largest edge of a preview, in pixels.
const MaxSide = 256

// Thumbnail decodes an image and fits it into a maxSide x maxSide box,
// keeping the aspect ratio. Smaller images are returned unscaled.
func Thumbnail(data []byte, maxSide int) (image.Image, error) {
	if maxSide <= 0 {
		maxSide = MaxSide
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Fit не увеличивает маленькие изображения
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos), nil
}

// DataURL encodes img as PNG in a data URL.
func DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// WriteFile saves img to path; the format follows the extension.
func WriteFile(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}
