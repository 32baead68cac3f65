// Package imaging shrinks uploaded photos before they are stored.
package imaging

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Downscaler fits photos inside a MaxDimension square, keeping the aspect
// ratio. Formats it cannot decode are passed through untouched.
type Downscaler struct {
	MaxDimension int
}

func NewDownscaler(maxDimension int) *Downscaler {
	return &Downscaler{MaxDimension: maxDimension}
}

func formatFor(contentType string) (imaging.Format, string, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return imaging.JPEG, "image/jpeg", true
	case "image/png":
		return imaging.PNG, "image/png", true
	case "image/gif":
		return imaging.GIF, "image/gif", true
	case "image/bmp":
		return imaging.BMP, "image/bmp", true
	case "image/tiff":
		return imaging.TIFF, "image/tiff", true
	}
	return 0, "", false
}

func (d *Downscaler) Process(data []byte, contentType string) ([]byte, string, error) {
	format, outType, ok := formatFor(contentType)
	if !ok || d.MaxDimension <= 0 {
		return data, contentType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", contentType, err)
	}
	b := img.Bounds()
	if b.Dx() <= d.MaxDimension && b.Dy() <= d.MaxDimension {
		return data, contentType, nil
	}

	resized := imaging.Fit(img, d.MaxDimension, d.MaxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", outType, err)
	}
	return buf.Bytes(), outType, nil
}
