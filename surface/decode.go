package surface

import (
	"bytes"
	"context"
	"image"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/assets"
)

// Decode 把图片字节解码成可绘制的图像，按 EXIF 方向自动旋转（手机照片）
func Decode(ctx context.Context, data []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Composition(err, "decode image")
	}
	if len(data) == 0 {
		return nil, apperr.Composition(nil, "decode image: empty data")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Composition(err, "decode image")
	}
	if img.Bounds().Empty() {
		return nil, apperr.Composition(nil, "decode image: no pixels")
	}
	return img, nil
}

// LoadOverlay 每次合成都重新加载前景框；path 为空时使用内置的 yeezy_frame.png
func LoadOverlay(ctx context.Context, path string) (image.Image, error) {
	data := assets.Overlay()
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, apperr.Composition(err, "load overlay %s", path)
		}
	}
	return Decode(ctx, data)
}
