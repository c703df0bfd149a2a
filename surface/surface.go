package surface

import (
	"image"
	"image/color"
	"image/draw"

	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/util"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// 选中控件
const (
	handleSize   = 10
	rotateOffset = 40
)

var handleColor = color.NRGBA{R: 0x99, G: 0x45, B: 0xFF, A: 0xFF}

// Object 画布上的一个图层
type Object struct {
	Image     image.Image
	Placement Placement

	// Selectable 可以拖动；HasControls 选中时显示缩放/旋转控件
	Selectable  bool
	HasControls bool
}

func (o *Object) Size() (int, int) {
	b := o.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Bounds 图层在画布上的外接矩形
func (o *Object) Bounds() Rect {
	w, h := o.Size()
	return o.Placement.Bounds(w, h)
}

// Center 图层中心在画布上的位置
func (o *Object) Center() Point {
	w, h := o.Size()
	return o.Placement.Center(w, h)
}

// Surface 固定尺寸的合成画布：一个背景层（抠图结果，不是 object）加上最多一个前景框
type Surface struct {
	width  int
	height int
	target RenderTarget

	background *Object
	objects    []*Object
	active     *Object

	dirty    bool
	disposed bool
}

type Option func(*Surface)

func WithSize(width, height int) Option {
	return func(s *Surface) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// New 创建一个空画布并绑定到 target
func New(target RenderTarget, opts ...Option) *Surface {
	s := &Surface{
		width:  DefaultWidth,
		height: DefaultHeight,
		target: target,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.target.Reset(s.width, s.height)
	return s
}

func (s *Surface) Width() int { return s.width }
func (s *Surface) Height() int { return s.height }
func (s *Surface) Dirty() bool { return s.dirty }
func (s *Surface) Disposed() bool { return s.disposed }
func (s *Surface) Background() *Object { return s.background }
func (s *Surface) Active() *Object { return s.active }

// Objects 前景对象，按绘制顺序
func (s *Surface) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// SetBackground 清掉已有对象后把抠图结果装为背景
func (s *Surface) SetBackground(img image.Image) error {
	if err := s.check(img); err != nil {
		return err
	}
	img = normalize(img)

	s.removeObjects()
	s.background = &Object{
		Image:     img,
		Placement: BackgroundPlacement(s.width, s.height, img.Bounds().Dx()),
	}
	s.dirty = true
	return nil
}

// AddOverlay 前景框铺满画布，可选中、可缩放
func (s *Surface) AddOverlay(img image.Image) (*Object, error) {
	if err := s.check(img); err != nil {
		return nil, err
	}
	img = normalize(img)

	b := img.Bounds()
	obj := &Object{
		Image:       img,
		Placement:   OverlayPlacement(s.width, s.height, b.Dx(), b.Dy()),
		Selectable:  true,
		HasControls: true,
	}
	// 同一时间最多一个前景框，重复添加时替换旧的
	s.removeObjects()
	s.objects = append(s.objects, obj)
	s.dirty = true
	return obj, nil
}

// Select 选中一个对象，之后屏幕渲染会带上控件
func (s *Surface) Select(obj *Object) error {
	if s.disposed {
		return apperr.Composition(nil, "surface is disposed")
	}
	if !s.owns(obj) {
		return apperr.Composition(nil, "object is not on this surface")
	}
	if !obj.Selectable {
		return apperr.Composition(nil, "object is not selectable")
	}
	if s.active != obj {
		s.active = obj
		s.dirty = true
	}
	return nil
}

// DiscardActive 取消选中
func (s *Surface) DiscardActive() {
	if s.active != nil {
		s.active = nil
		s.dirty = true
	}
}

// Manipulate 拖动/缩放/旋转一个可选中的对象，没有边界和吸附
func (s *Surface) Manipulate(obj *Object, t Transform) error {
	if s.disposed {
		return apperr.Composition(nil, "surface is disposed")
	}
	if !s.owns(obj) {
		return apperr.Composition(nil, "object is not on this surface")
	}
	if !obj.Selectable {
		return apperr.Composition(nil, "object is not selectable")
	}
	if (t.ScaleX != 0 || t.ScaleY != 0 || t.Angle != 0) && !obj.HasControls {
		return apperr.Composition(nil, "object has no controls")
	}

	w, h := obj.Size()
	obj.Placement = t.Apply(obj.Placement, w, h)
	s.dirty = true
	return nil
}

// Render 重新绘制整块画布
func (s *Surface) Render() error {
	if s.disposed {
		return apperr.Composition(nil, "surface is disposed")
	}

	s.target.Reset(s.width, s.height)
	if s.background != nil {
		s.draw(s.background)
	}
	for _, obj := range s.objects {
		s.draw(obj)
	}
	if s.active != nil && s.active.HasControls {
		s.drawControls(s.active)
	}
	s.dirty = false
	return nil
}

// Frame 最近一次 Render 的结果
func (s *Surface) Frame() image.Image {
	if s.disposed {
		return nil
	}
	return s.target.Frame()
}

// Clear 移除所有对象和背景，空画布上调用不做任何事
func (s *Surface) Clear() {
	if s.background == nil && len(s.objects) == 0 {
		return
	}
	s.removeObjects()
	s.background = nil
	s.dirty = true
}

// Dispose 清空并释放绘制资源，可以重复调用
func (s *Surface) Dispose() {
	if s.disposed {
		return
	}
	s.Clear()
	s.target.Release()
	s.disposed = true
	util.Logger.Debug("surface disposed", zap.Int("width", s.width), zap.Int("height", s.height))
}

func (s *Surface) removeObjects() {
	s.objects = nil
	s.active = nil
}

func (s *Surface) owns(obj *Object) bool {
	for _, o := range s.objects {
		if o == obj {
			return true
		}
	}
	return false
}

func (s *Surface) check(img image.Image) error {
	if s.disposed {
		return apperr.Composition(nil, "surface is disposed")
	}
	if img == nil || img.Bounds().Empty() {
		return apperr.Composition(nil, "image has no pixels")
	}
	return nil
}

func (s *Surface) draw(obj *Object) {
	w, h := obj.Size()
	s.target.Draw(obj.Image, obj.Placement.Matrix(w, h))
}

// drawControls 四角、四边中点的缩放控件和顶部的旋转控件
func (s *Surface) drawControls(obj *Object) {
	w, h := obj.Size()
	fw, fh := float64(w), float64(h)
	p := obj.Placement

	points := []Point{
		p.Apply(w, h, 0, 0),
		p.Apply(w, h, fw/2, 0),
		p.Apply(w, h, fw, 0),
		p.Apply(w, h, fw, fh/2),
		p.Apply(w, h, fw, fh),
		p.Apply(w, h, fw/2, fh),
		p.Apply(w, h, 0, fh),
		p.Apply(w, h, 0, fh/2),
	}
	// 旋转控件在上边中点外侧，距离不随缩放变化
	if p.ScaleY != 0 {
		points = append(points, p.Apply(w, h, fw/2, -rotateOffset/p.ScaleY))
	}

	for _, pt := range points {
		x, y := int(pt.X), int(pt.Y)
		r := image.Rect(x-handleSize/2, y-handleSize/2, x+handleSize/2, y+handleSize/2)
		s.target.Fill(r, handleColor)
	}
}

// normalize 保证图像原点在 (0, 0)，仿射矩阵按这个前提计算
func normalize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Min == (image.Point{}) {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
