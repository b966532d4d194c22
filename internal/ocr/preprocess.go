package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Preprocess decodes an image, converts it to a contrast-boosted grayscale
// PNG and downscales it to maxWidth when wider. maxWidth <= 0 keeps the size.
func Preprocess(data []byte, maxWidth int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 20)
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	img = imaging.Sharpen(img, 0.8)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
