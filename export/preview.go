package export

import (
	"bytes"
	"image"
	"image/png"

	"github.com/nfnt/resize"

	"github.com/chaos-io/yeezyframe/apperr"
)

// Preview 缩略图（最长边 <= maxSize），小图原样返回
func Preview(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

// PreviewPNG 缩略图编码为 PNG
func PreviewPNG(img image.Image, maxSize int) ([]byte, error) {
	if img == nil {
		return nil, apperr.Export(nil, "no frame to preview")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, Preview(img, maxSize)); err != nil {
		return nil, apperr.Export(err, "encode preview")
	}
	return buf.Bytes(), nil
}
