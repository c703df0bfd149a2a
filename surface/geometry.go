package surface

import (
	"math"

	"golang.org/x/image/math/f64"
)

// 背景图（抠图结果）的摆放参数：宽度为画布的 1/3，中心点在 (w/2.7, h/2.2)
const (
	backgroundWidthRatio = 3.0
	backgroundLeftRatio  = 2.7
	backgroundTopRatio   = 2.2
)

// Origin 决定 Left/Top 指向图层的哪个点
type Origin int

const (
	OriginTopLeft Origin = iota
	OriginCenter
)

// Placement 图层在画布上的位置、缩放和旋转（角度，顺时针）
type Placement struct {
	Left   float64
	Top    float64
	ScaleX float64
	ScaleY float64
	Angle  float64
	Origin Origin
}

// Rect 浮点矩形
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64 { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Point 浮点坐标
type Point struct {
	X, Y float64
}

// BackgroundPlacement 等比缩放到画布宽度的 1/3，中心对齐到固定锚点
func BackgroundPlacement(surfaceWidth, surfaceHeight, imgWidth int) Placement {
	scale := float64(surfaceWidth) / float64(imgWidth) / backgroundWidthRatio
	return Placement{
		Left:   float64(surfaceWidth) / backgroundLeftRatio,
		Top:    float64(surfaceHeight) / backgroundTopRatio,
		ScaleX: scale,
		ScaleY: scale,
		Origin: OriginCenter,
	}
}

// OverlayPlacement 非等比缩放，正好铺满整个画布
func OverlayPlacement(surfaceWidth, surfaceHeight, imgWidth, imgHeight int) Placement {
	return Placement{
		ScaleX: float64(surfaceWidth) / float64(imgWidth),
		ScaleY: float64(surfaceHeight) / float64(imgHeight),
		Origin: OriginTopLeft,
	}
}

// anchor 原点在缩放后图层内的偏移
func (p Placement) anchor(imgWidth, imgHeight int) (float64, float64) {
	if p.Origin == OriginCenter {
		return float64(imgWidth) * p.ScaleX / 2, float64(imgHeight) * p.ScaleY / 2
	}
	return 0, 0
}

// Matrix 源图像素坐标到画布坐标的仿射矩阵:
// 先缩放，再绕原点旋转，最后把原点平移到 (Left, Top)
func (p Placement) Matrix(imgWidth, imgHeight int) f64.Aff3 {
	rad := p.Angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	ax, ay := p.anchor(imgWidth, imgHeight)

	return f64.Aff3{
		cos * p.ScaleX, -sin * p.ScaleY, p.Left - cos*ax + sin*ay,
		sin * p.ScaleX, cos * p.ScaleY, p.Top - sin*ax - cos*ay,
	}
}

// Apply 把源图坐标映射到画布
func (p Placement) Apply(imgWidth, imgHeight int, x, y float64) Point {
	m := p.Matrix(imgWidth, imgHeight)
	return Point{
		X: m[0]*x + m[1]*y + m[2],
		Y: m[3]*x + m[4]*y + m[5],
	}
}

// Corners 四个角在画布上的位置：左上、右上、右下、左下
func (p Placement) Corners(imgWidth, imgHeight int) [4]Point {
	w, h := float64(imgWidth), float64(imgHeight)
	return [4]Point{
		p.Apply(imgWidth, imgHeight, 0, 0),
		p.Apply(imgWidth, imgHeight, w, 0),
		p.Apply(imgWidth, imgHeight, w, h),
		p.Apply(imgWidth, imgHeight, 0, h),
	}
}

// Bounds 旋转后的外接矩形
func (p Placement) Bounds(imgWidth, imgHeight int) Rect {
	corners := p.Corners(imgWidth, imgHeight)
	r := Rect{MinX: corners[0].X, MinY: corners[0].Y, MaxX: corners[0].X, MaxY: corners[0].Y}
	for _, c := range corners[1:] {
		r.MinX = math.Min(r.MinX, c.X)
		r.MinY = math.Min(r.MinY, c.Y)
		r.MaxX = math.Max(r.MaxX, c.X)
		r.MaxY = math.Max(r.MaxY, c.Y)
	}
	return r
}

// Center 图层中心在画布上的位置
func (p Placement) Center(imgWidth, imgHeight int) Point {
	return p.Apply(imgWidth, imgHeight, float64(imgWidth)/2, float64(imgHeight)/2)
}

// withCenter 调整 Left/Top，使图层中心落在 c
func (p Placement) withCenter(imgWidth, imgHeight int, c Point) Placement {
	cur := p.Center(imgWidth, imgHeight)
	p.Left += c.X - cur.X
	p.Top += c.Y - cur.Y
	return p
}

// Transform 一次拖动/缩放/旋转操作。ScaleX/ScaleY 是倍数，0 表示不变
type Transform struct {
	DX     float64
	DY     float64
	ScaleX float64
	ScaleY float64
	Angle  float64
}

// Apply 以图层中心为基准缩放和旋转，再平移 (DX, DY)；不做边界限制
func (t Transform) Apply(p Placement, imgWidth, imgHeight int) Placement {
	center := p.Center(imgWidth, imgHeight)

	if t.ScaleX != 0 {
		p.ScaleX *= t.ScaleX
	}
	if t.ScaleY != 0 {
		p.ScaleY *= t.ScaleY
	}
	p.Angle = math.Mod(p.Angle+t.Angle, 360)

	center.X += t.DX
	center.Y += t.DY
	return p.withCenter(imgWidth, imgHeight, center)
}
