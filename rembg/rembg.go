package rembg

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/model"
)

// Remover 去除图片背景，单次调用，不重试
type Remover interface {
	Remove(ctx context.Context, src model.SourceImage) (*model.CutoutImage, error)
}

// Passthrough 不调用任何服务，原图直接作为抠图结果（已经是透明背景的图片）
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Remove(ctx context.Context, src model.SourceImage) (*model.CutoutImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.RemovalService(err, "remove background")
	}
	return NewCutout(src.Data, src.Name)
}

// NewCutout 校验响应体确实是一张能解码的图片
func NewCutout(data []byte, source string) (*model.CutoutImage, error) {
	if len(data) == 0 {
		return nil, apperr.RemovalService(nil, "empty response body")
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, apperr.RemovalService(nil, "response is not an image (%s)", mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.RemovalService(err, "decode cutout header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperr.RemovalService(nil, "cutout has no pixels")
	}

	return &model.CutoutImage{
		Data:        data,
		ContentType: mt.String(),
		Width:       cfg.Width,
		Height:      cfg.Height,
		Source:      source,
	}, nil
}
