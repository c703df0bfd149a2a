package surface

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"github.com/chaos-io/yeezyframe/apperr"
)

var red = color.NRGBA{R: 200, G: 10, B: 10, A: 255}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func assertColor(t *testing.T, want color.NRGBA, got color.Color) {
	t.Helper()

	n := color.NRGBAModel.Convert(got).(color.NRGBA)
	assert.InDelta(t, want.R, n.R, 2)
	assert.InDelta(t, want.G, n.G, 2)
	assert.InDelta(t, want.B, n.B, 2)
	assert.InDelta(t, want.A, n.A, 2)
}

func compose(t *testing.T, s *Surface) *Object {
	t.Helper()

	require.NoError(t, s.SetBackground(solid(300, 300, red)))
	overlay, err := s.AddOverlay(image.NewNRGBA(image.Rect(0, 0, 400, 300)))
	require.NoError(t, err)
	require.NoError(t, s.Render())
	return overlay
}

func TestNew(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	assert.Equal(t, DefaultWidth, s.Width())
	assert.Equal(t, DefaultHeight, s.Height())
	assert.Nil(t, s.Background())
	assert.Empty(t, s.Objects())
	assert.Equal(t, image.Rect(0, 0, 800, 600), s.Frame().Bounds())

	s = New(NewRasterTarget(), WithSize(1024, 768))
	assert.Equal(t, image.Rect(0, 0, 1024, 768), s.Frame().Bounds())
}

func TestSurface_SetBackground(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	require.NoError(t, s.SetBackground(solid(300, 450, red)))
	assert.True(t, s.Dirty())

	bg := s.Background()
	require.NotNil(t, bg)
	assert.False(t, bg.Selectable)
	assert.InDelta(t, 800.0/3, bg.Bounds().Width(), 1e-6)
	assert.InDelta(t, 800/2.7, bg.Center().X, 1e-6)
	assert.InDelta(t, 600/2.2, bg.Center().Y, 1e-6)
}

func TestSurface_AddOverlay(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	overlay := compose(t, s)

	assert.True(t, overlay.Selectable)
	assert.True(t, overlay.HasControls)
	b := overlay.Bounds()
	assert.InDelta(t, 0, b.MinX, 1e-9)
	assert.InDelta(t, 0, b.MinY, 1e-9)
	assert.InDelta(t, 800, b.MaxX, 1e-9)
	assert.InDelta(t, 600, b.MaxY, 1e-9)
}

func TestSurface_AtMostOneOverlay(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	compose(t, s)
	second := compose(t, s)

	objects := s.Objects()
	require.Len(t, objects, 1)
	assert.Same(t, second, objects[0])

	// 直接再加一次前景框也只保留最新的
	third, err := s.AddOverlay(solid(10, 10, color.Transparent))
	require.NoError(t, err)
	objects = s.Objects()
	require.Len(t, objects, 1)
	assert.Same(t, third, objects[0])
}

func TestSurface_Render(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	compose(t, s)
	assert.False(t, s.Dirty())

	frame := s.Frame()
	assertColor(t, red, frame.At(296, 272))
	// 背景层之外透明
	assertColor(t, color.NRGBA{}, frame.At(20, 20))
}

func TestSurface_RenderFill(t *testing.T) {
	t.Parallel()

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	s := New(NewRasterTarget(WithFill(white)))
	compose(t, s)

	assertColor(t, red, s.Frame().At(296, 272))
	assertColor(t, white, s.Frame().At(790, 590))
}

func TestInterpolator(t *testing.T) {
	tests := []struct {
		name string
		want draw.Interpolator
	}{
		{name: "nearest", want: draw.NearestNeighbor},
		{name: "bilinear", want: draw.ApproxBiLinear},
		{name: "catmullrom", want: draw.CatmullRom},
		{name: "cubic", want: nil},
		{name: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolator(tt.name))
		})
	}
}

func TestRasterTarget_Interpolator(t *testing.T) {
	t.Parallel()

	assert.Equal(t, draw.CatmullRom, NewRasterTarget().interp)
	assert.Equal(t, draw.CatmullRom, NewRasterTarget(WithInterpolator(nil)).interp)

	target := NewRasterTarget(WithInterpolator(Interpolator("nearest")))
	assert.Equal(t, draw.NearestNeighbor, target.interp)

	s := New(target)
	compose(t, s)
	assertColor(t, red, s.Frame().At(296, 272))
	assertColor(t, color.NRGBA{}, s.Frame().At(20, 20))
}

func TestSurface_SelectShowsControls(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	overlay := compose(t, s)

	require.NoError(t, s.Select(overlay))
	assert.Same(t, overlay, s.Active())
	require.NoError(t, s.Render())
	assertColor(t, handleColor, s.Frame().At(2, 2))

	s.DiscardActive()
	assert.True(t, s.Dirty())
	require.NoError(t, s.Render())
	assertColor(t, color.NRGBA{}, s.Frame().At(2, 2))
}

func TestSurface_Manipulate(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	overlay := compose(t, s)

	require.NoError(t, s.Manipulate(overlay, Transform{DX: 100, DY: 50, ScaleX: 0.5, ScaleY: 0.5}))
	assert.True(t, s.Dirty())

	b := overlay.Bounds()
	assert.InDelta(t, 400, b.Width(), 1e-6)
	assert.InDelta(t, 300, b.Height(), 1e-6)
	assert.InDelta(t, 500, overlay.Center().X, 1e-6)
	assert.InDelta(t, 350, overlay.Center().Y, 1e-6)

	// 没有边界限制，可以拖出画布
	require.NoError(t, s.Manipulate(overlay, Transform{DX: 5000}))
	assert.Greater(t, overlay.Bounds().MinX, 800.0)

	// 背景不是可选中的对象
	err := s.Manipulate(s.Background(), Transform{DX: 1})
	assert.ErrorIs(t, err, apperr.ErrComposition)
	assert.ErrorIs(t, s.Select(s.Background()), apperr.ErrComposition)
}

func TestSurface_ManipulateWithoutControls(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	overlay := compose(t, s)
	overlay.HasControls = false

	require.NoError(t, s.Manipulate(overlay, Transform{DX: 10}))
	assert.ErrorIs(t, s.Manipulate(overlay, Transform{Angle: 10}), apperr.ErrComposition)
}

func TestSurface_LoadFailureKeepsState(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	overlay := compose(t, s)
	bg := s.Background()

	assert.ErrorIs(t, s.SetBackground(nil), apperr.ErrComposition)
	_, err := s.AddOverlay(image.NewNRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, apperr.ErrComposition)

	assert.Same(t, bg, s.Background())
	require.Len(t, s.Objects(), 1)
	assert.Same(t, overlay, s.Objects()[0])
}

func TestSurface_Clear(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())

	// 空画布上 Clear 不做任何事
	s.Clear()
	assert.False(t, s.Dirty())

	compose(t, s)
	s.Clear()
	assert.Nil(t, s.Background())
	assert.Empty(t, s.Objects())
	assert.Nil(t, s.Active())
	assert.True(t, s.Dirty())

	s.Clear()
	require.NoError(t, s.Render())
	assertColor(t, color.NRGBA{}, s.Frame().At(296, 272))
}

func TestSurface_Dispose(t *testing.T) {
	t.Parallel()

	s := New(NewRasterTarget())
	compose(t, s)

	s.Dispose()
	s.Dispose()
	assert.True(t, s.Disposed())
	assert.Nil(t, s.Frame())
	assert.Nil(t, s.Background())

	assert.ErrorIs(t, s.SetBackground(solid(2, 2, red)), apperr.ErrComposition)
	_, err := s.AddOverlay(solid(2, 2, red))
	assert.ErrorIs(t, err, apperr.ErrComposition)
	assert.ErrorIs(t, s.Render(), apperr.ErrComposition)
}

func TestSurface_NonZeroOrigin(t *testing.T) {
	t.Parallel()

	sub := solid(600, 600, red).SubImage(image.Rect(300, 300, 600, 600))
	s := New(NewRasterTarget())
	require.NoError(t, s.SetBackground(sub))
	require.NoError(t, s.Render())

	assert.Equal(t, image.Point{}, s.Background().Image.Bounds().Min)
	assertColor(t, red, s.Frame().At(296, 272))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(12, 7, red)))

	img, err := Decode(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 7, img.Bounds().Dy())

	_, err = Decode(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, apperr.ErrComposition)

	_, err = Decode(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrComposition)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Decode(ctx, buf.Bytes())
	assert.ErrorIs(t, err, apperr.ErrComposition)
}

func TestLoadOverlay(t *testing.T) {
	t.Parallel()

	img, err := LoadOverlay(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	// 边框不透明，中间透明
	assertColor(t, color.NRGBA{R: 0x99, G: 0x45, B: 0xFF, A: 0xFF}, img.At(2, 2))
	_, _, _, a := img.At(200, 150).RGBA()
	assert.Zero(t, a)

	_, err = LoadOverlay(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, apperr.ErrComposition)
}
