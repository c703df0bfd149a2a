// Package pipeline 串起选图、抠图、合成、导出四个步骤。
//
// 每个进程同一时间只有一个合成，所有操作都经过状态机：
//
//	Idle -> Validating -> Removing -> Composing -> Ready -> Exporting -> Idle
//
// 抠图请求期间不持有锁，其它请求可以查询状态，但新的文件会被拒绝（Busy）。
package pipeline

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/config"
	"github.com/chaos-io/yeezyframe/export"
	"github.com/chaos-io/yeezyframe/metrics"
	"github.com/chaos-io/yeezyframe/model"
	"github.com/chaos-io/yeezyframe/rembg"
	"github.com/chaos-io/yeezyframe/surface"
	"github.com/chaos-io/yeezyframe/util"
)

type Pipeline struct {
	mu    sync.Mutex
	state State
	// generation 每次 Reset 加一，抠图返回后用来判断结果是否已经过期
	generation uint64
	current    *session

	remover     rembg.Remover
	exporter    *export.Exporter
	newTarget   func() surface.RenderTarget
	width       int
	height      int
	overlayPath string
	prepare     surface.PrepareOptions
	maxSize     int64
	metrics     *metrics.Collector
	now         func() time.Time
}

// session 一次合成：画布、前景框和时间戳
type session struct {
	id        string
	source    string
	surface   *surface.Surface
	overlay   *surface.Object
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Pipeline)

func WithSurfaceSize(width, height int) Option {
	return func(p *Pipeline) {
		if width > 0 && height > 0 {
			p.width, p.height = width, height
		}
	}
}

// WithOverlayPath 前景框图片路径，为空时使用内置图片
func WithOverlayPath(path string) Option {
	return func(p *Pipeline) { p.overlayPath = path }
}

// WithPrepare 抠图结果装入画布前的处理
func WithPrepare(opts surface.PrepareOptions) Option {
	return func(p *Pipeline) { p.prepare = opts }
}

func WithMaxSize(size int64) Option {
	return func(p *Pipeline) { p.maxSize = size }
}

func WithExporter(e *export.Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

func WithRenderTarget(newTarget func() surface.RenderTarget) Option {
	return func(p *Pipeline) { p.newTarget = newTarget }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(remover rembg.Remover, opts ...Option) *Pipeline {
	p := &Pipeline{
		state:     Idle,
		remover:   remover,
		exporter:  export.NewExporter(),
		newTarget: func() surface.RenderTarget { return surface.NewRasterTarget() },
		width:     surface.DefaultWidth,
		height:    surface.DefaultHeight,
		prepare:   surface.PrepareOptions{MaxSide: surface.DefaultMaxCutoutSide},
		maxSize:   config.MaxUploadSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig 按配置组装
func NewFromConfig(cfg *config.Config, remover rembg.Remover, opts ...Option) *Pipeline {
	interp := surface.Interpolator(cfg.Surface.Interpolation)
	base := []Option{
		WithSurfaceSize(cfg.Surface.Width, cfg.Surface.Height),
		WithRenderTarget(func() surface.RenderTarget {
			return surface.NewRasterTarget(surface.WithInterpolator(interp))
		}),
		WithOverlayPath(cfg.Surface.OverlayPath),
		WithPrepare(surface.PrepareOptions{
			MaxSide:       cfg.Surface.MaxCutoutSide,
			Trim:          cfg.Surface.TrimCutout,
			TrimThreshold: cfg.Surface.TrimThreshold,
		}),
		WithMaxSize(cfg.Upload.MaxSize),
		WithExporter(export.NewExporter(export.WithPrefix(cfg.Export.Prefix))),
	}
	return New(remover, append(base, opts...)...)
}

// Select 用户选中一张图片：校验、抠图、合成，成功后进入 Ready
func (p *Pipeline) Select(ctx context.Context, src model.SourceImage) (*model.Composition, error) {
	defer util.Trace("select " + src.Name)()

	p.mu.Lock()
	if _, err := Transition(p.state, FileSelected); err != nil {
		p.mu.Unlock()
		return nil, err
	}

	// 校验失败不改变状态，已就绪的合成保持不动
	checked, err := Validate(src, p.maxSize)
	if err != nil {
		if p.state == Idle {
			p.mustFire(FileSelected)
			p.mustFire(ValidationFailed)
		}
		p.mu.Unlock()
		util.Logger.Warn("file rejected", zap.String("file", src.Name), zap.Error(err))
		return nil, err
	}
	src = checked

	// 新文件替换旧的合成
	p.mustFire(FileSelected)
	p.teardown()
	p.mustFire(ValidationPassed)

	s := surface.New(p.newTarget(), surface.WithSize(p.width, p.height))
	generation := p.generation
	p.mu.Unlock()

	cutout, err := p.remover.Remove(ctx, src)

	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		s.Dispose()
		return nil, apperr.InvalidState("composition was reset while removing background")
	}
	if err != nil {
		s.Dispose()
		p.mustFire(RemovalFailed)
		p.metrics.ObserveComposition(err)
		util.Logger.Error("background removal failed", zap.String("file", src.Name), zap.Error(err))
		return nil, err
	}
	p.mustFire(RemovalSucceeded)

	overlay, err := p.compose(ctx, s, cutout)
	if err != nil {
		s.Dispose()
		p.mustFire(CompositionFailed)
		p.metrics.ObserveComposition(err)
		util.Logger.Error("composition failed", zap.String("file", src.Name), zap.Error(err))
		return nil, err
	}
	p.mustFire(CompositionDone)
	p.metrics.ObserveComposition(nil)

	now := p.now()
	p.current = &session{
		id:        ksuid.New().String(),
		source:    src.Name,
		surface:   s,
		overlay:   overlay,
		createdAt: now,
		updatedAt: now,
	}
	util.Logger.Info("composition ready",
		zap.String("id", p.current.id),
		zap.String("file", src.Name),
		zap.Int("cutout_width", cutout.Width),
		zap.Int("cutout_height", cutout.Height))
	return p.snapshot(), nil
}

// compose 背景层（抠图）加前景框，任何一步失败画布都不算完成
func (p *Pipeline) compose(ctx context.Context, s *surface.Surface, cutout *model.CutoutImage) (*surface.Object, error) {
	background, err := surface.Decode(ctx, cutout.Data)
	if err != nil {
		return nil, err
	}
	frame, err := surface.LoadOverlay(ctx, p.overlayPath)
	if err != nil {
		return nil, err
	}

	if err := s.SetBackground(surface.Prepare(background, p.prepare)); err != nil {
		return nil, err
	}
	overlay, err := s.AddOverlay(frame)
	if err != nil {
		return nil, err
	}
	if err := s.Render(); err != nil {
		return nil, err
	}
	return overlay, nil
}

// Manipulate 拖动/缩放/旋转前景框
func (p *Pipeline) Manipulate(id string, t surface.Transform) (*model.Composition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := cur.surface.Manipulate(cur.overlay, t); err != nil {
		return nil, err
	}
	if err := cur.surface.Render(); err != nil {
		return nil, err
	}
	cur.updatedAt = p.now()

	util.Logger.Debug("overlay moved",
		zap.String("id", id),
		zap.Float64("dx", t.DX),
		zap.Float64("dy", t.DY),
		zap.Float64("scale_x", t.ScaleX),
		zap.Float64("scale_y", t.ScaleY),
		zap.Float64("angle", t.Angle))
	return p.snapshot(), nil
}

// SetSelected 选中前景框后预览会带上控件
func (p *Pipeline) SetSelected(id string, selected bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := p.lookup(id)
	if err != nil {
		return err
	}
	if selected {
		if err := cur.surface.Select(cur.overlay); err != nil {
			return err
		}
	} else {
		cur.surface.DiscardActive()
	}
	cur.updatedAt = p.now()
	return nil
}

// Frame 当前屏幕上的画面（选中时带控件），返回副本
func (p *Pipeline) Frame(id string) (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	if cur.surface.Dirty() {
		if err := cur.surface.Render(); err != nil {
			return nil, err
		}
	}
	frame := cur.surface.Frame()
	if frame == nil {
		return nil, apperr.Composition(nil, "surface has no frame")
	}
	return imaging.Clone(frame), nil
}

// Export 压平导出并交给 downloader；不论成功与否，合成都会被销毁并回到 Idle
func (p *Pipeline) Export(ctx context.Context, id string, d export.Downloader) (*export.Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	p.mustFire(ExportRequested)

	artifact, err := p.exporter.Export(cur.surface)
	if err == nil && d != nil {
		err = d.Download(ctx, artifact)
	}

	p.teardown()
	p.mustFire(ExportDone)
	p.metrics.ObserveExport(err)

	if err != nil {
		util.Logger.Error("export failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	util.Logger.Info("composition exported", zap.String("id", id), zap.String("name", artifact.Name))
	return artifact, nil
}

// Reset 丢弃当前合成，正在进行的抠图结果会被忽略
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Current 当前合成，没有时返回 nil
func (p *Pipeline) Current() *model.Composition {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshot()
}

// SweepIdle Ready 状态下超过 maxIdle 没有操作的合成会被回收
func (p *Pipeline) SweepIdle(maxIdle time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if maxIdle <= 0 || p.state != Ready || p.current == nil {
		return false
	}
	idle := p.now().Sub(p.current.updatedAt)
	if idle <= maxIdle {
		return false
	}

	util.Logger.Info("idle composition swept", zap.String("id", p.current.id), zap.Duration("idle", idle))
	p.reset()
	return true
}

func (p *Pipeline) reset() {
	p.teardown()
	p.generation++
	if p.state != Idle {
		util.Logger.Debug("state reset", zap.Stringer("from", p.state))
	}
	p.state = Idle
}

// teardown 先释放旧画布，再创建新的
func (p *Pipeline) teardown() {
	if p.current == nil {
		return
	}
	p.current.surface.Dispose()
	p.current = nil
}

func (p *Pipeline) lookup(id string) (*session, error) {
	if p.state != Ready || p.current == nil {
		return nil, apperr.InvalidState("no composition is ready (%s)", p.state)
	}
	if p.current.id != id {
		return nil, apperr.InvalidState("composition %q is not active", id)
	}
	return p.current, nil
}

func (p *Pipeline) fire(e Event) error {
	to, err := Transition(p.state, e)
	if err != nil {
		return err
	}
	util.Logger.Debug("state changed",
		zap.Stringer("event", e),
		zap.Stringer("from", p.state),
		zap.Stringer("to", to))
	p.state = to
	return nil
}

// mustFire 调用处的状态由流程保证，失败说明流程本身有 bug
func (p *Pipeline) mustFire(e Event) {
	if err := p.fire(e); err != nil {
		panic(err)
	}
}

func (p *Pipeline) snapshot() *model.Composition {
	cur := p.current
	if cur == nil {
		return nil
	}

	c := &model.Composition{
		ID:        cur.id,
		State:     p.state.String(),
		Source:    cur.source,
		Width:     cur.surface.Width(),
		Height:    cur.surface.Height(),
		CreatedAt: cur.createdAt,
		UpdatedAt: cur.updatedAt,
	}
	if o := cur.overlay; o != nil {
		w, h := o.Size()
		c.Overlay = &model.Placement{
			Left:     o.Placement.Left,
			Top:      o.Placement.Top,
			ScaleX:   o.Placement.ScaleX,
			ScaleY:   o.Placement.ScaleY,
			Angle:    o.Placement.Angle,
			Width:    float64(w) * o.Placement.ScaleX,
			Height:   float64(h) * o.Placement.ScaleY,
			Selected: cur.surface.Active() == o,
		}
	}
	return c
}
