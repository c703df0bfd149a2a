package surface

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RenderTarget 画布的绘制后端。Surface 只负责几何计算，像素由 RenderTarget 产生
type RenderTarget interface {
	// Reset 清空并按给定尺寸重建绘制区域
	Reset(width, height int)
	// Draw 按源图到画布的仿射矩阵绘制一张图
	Draw(img image.Image, m f64.Aff3)
	// Fill 用纯色填充一个矩形（选中控件）
	Fill(r image.Rectangle, c color.Color)
	// Frame 当前绘制结果
	Frame() image.Image
	// Release 释放绘制资源，之后的 Frame 返回 nil
	Release()
}

// RasterTarget 基于内存 RGBA 缓冲区的 RenderTarget
type RasterTarget struct {
	fill   color.Color
	interp draw.Interpolator
	dst    *image.RGBA
}

type RasterOption func(*RasterTarget)

// WithFill 背景色，默认透明
func WithFill(c color.Color) RasterOption {
	return func(t *RasterTarget) { t.fill = c }
}

// WithInterpolator 默认 CatmullRom，nil 时忽略
func WithInterpolator(i draw.Interpolator) RasterOption {
	return func(t *RasterTarget) {
		if i != nil {
			t.interp = i
		}
	}
}

// Interpolator 按名称取插值器，未知名称返回 nil
func Interpolator(name string) draw.Interpolator {
	switch name {
	case "nearest":
		return draw.NearestNeighbor
	case "bilinear":
		return draw.ApproxBiLinear
	case "catmullrom":
		return draw.CatmullRom
	default:
		return nil
	}
}

func NewRasterTarget(opts ...RasterOption) *RasterTarget {
	t := &RasterTarget{interp: draw.CatmullRom}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RasterTarget) Reset(width, height int) {
	if t.dst == nil || t.dst.Bounds().Dx() != width || t.dst.Bounds().Dy() != height {
		t.dst = image.NewRGBA(image.Rect(0, 0, width, height))
	} else {
		clear(t.dst.Pix)
	}
	if t.fill != nil {
		draw.Draw(t.dst, t.dst.Bounds(), image.NewUniform(t.fill), image.Point{}, draw.Src)
	}
}

func (t *RasterTarget) Draw(img image.Image, m f64.Aff3) {
	if t.dst == nil {
		return
	}
	t.interp.Transform(t.dst, m, img, img.Bounds(), draw.Over, nil)
}

func (t *RasterTarget) Fill(r image.Rectangle, c color.Color) {
	if t.dst == nil {
		return
	}
	draw.Draw(t.dst, r.Intersect(t.dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func (t *RasterTarget) Frame() image.Image {
	if t.dst == nil {
		return nil
	}
	return t.dst
}

func (t *RasterTarget) Release() {
	t.dst = nil
}
