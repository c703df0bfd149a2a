package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/surface"
	"github.com/chaos-io/yeezyframe/util"
)

const (
	DefaultPrefix = "Yeezy"

	mediaType = "image/png"
)

// Artifact 合成结果的一次快照，只在导出过程中存在
type Artifact struct {
	Name      string
	Data      []byte
	DataURI   string
	Width     int
	Height    int
	CreatedAt time.Time
}

type Exporter struct {
	prefix  string
	now     func() time.Time
	encoder png.Encoder
}

type Option func(*Exporter)

// WithPrefix 文件名前缀，默认 Yeezy
func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		prefix:  DefaultPrefix,
		now:     time.Now,
		encoder: png.Encoder{CompressionLevel: png.BestCompression},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName <prefix>_<unix 毫秒>.png
func FileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%d.png", prefix, t.UnixMilli())
}

// Export 取消选中后重新渲染，把所有图层压平成一张 PNG
func (e *Exporter) Export(s *surface.Surface) (*Artifact, error) {
	defer util.Trace("export")()

	if s == nil || s.Disposed() {
		return nil, apperr.Export(nil, "no active surface")
	}
	if s.Background() == nil {
		return nil, apperr.Export(nil, "surface has no background")
	}

	// 控件不能出现在导出的图片里
	s.DiscardActive()
	if err := s.Render(); err != nil {
		return nil, apperr.Export(err, "render surface")
	}

	frame := s.Frame()
	if frame == nil {
		return nil, apperr.Export(nil, "surface has no frame")
	}

	var buf bytes.Buffer
	if err := e.encoder.Encode(&buf, frame); err != nil {
		return nil, apperr.Export(err, "encode png")
	}

	createdAt := e.now()
	artifact := &Artifact{
		Name:      FileName(e.prefix, createdAt),
		Data:      buf.Bytes(),
		DataURI:   DataURI(buf.Bytes()),
		Width:     frame.Bounds().Dx(),
		Height:    frame.Bounds().Dy(),
		CreatedAt: createdAt,
	}

	util.Logger.Info("surface exported",
		zap.String("name", artifact.Name),
		zap.Int("bytes", len(artifact.Data)))
	return artifact, nil
}

// DataURI data:image/png;base64,...
func DataURI(data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
