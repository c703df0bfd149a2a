package surface

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// DefaultMaxCutoutSide 抠图结果最长边上限，画布上的背景层只有宽度的 1/3，更大的图没有意义
const DefaultMaxCutoutSide = 2048

// PrepareOptions 装入画布前对抠图结果的处理
type PrepareOptions struct {
	// MaxSide 最长边上限，0 表示不缩放
	MaxSide int
	// Trim 按 alpha 裁掉四周的透明区域
	Trim bool
	// TrimThreshold alpha 大于 TrimThreshold*255 的像素算作主体
	TrimThreshold float64
}

// Prepare 统一为 NRGBA，缩放（最长边 <= MaxSide），按需裁掉透明边
func Prepare(img image.Image, opts PrepareOptions) *image.NRGBA {
	src := imaging.Clone(img)

	if opts.Trim && HasAlpha(src) {
		if bbox, ok := AlphaBounds(src, opts.TrimThreshold); ok {
			src = imaging.Crop(src, bbox)
		}
	}

	return resizeWithinMax(src, opts.MaxSide)
}

// HasAlpha alpha 通道里只要有一个像素不是完全不透明，就认为已经抠过图
func HasAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// AlphaBounds 主体（alpha > threshold*255 的像素）的外接矩形，没有主体时 ok=false
func AlphaBounds(img *image.NRGBA, threshold float64) (image.Rectangle, bool) {
	b := img.Bounds()
	th := uint8(threshold * 255)

	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[row+(x-b.Min.X)*4+3] <= th {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// resizeWithinMax 缩放（最长边 <= maxSize）
func resizeWithinMax(img *image.NRGBA, maxSize int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	return imaging.Clone(resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3))
}
