package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/export"
	"github.com/chaos-io/yeezyframe/model"
	"github.com/chaos-io/yeezyframe/pipeline"
	"github.com/chaos-io/yeezyframe/surface"
	"github.com/chaos-io/yeezyframe/util"
)

// multipartOverhead 请求体上限在文件上限之外留给 multipart 头部和边界
const multipartOverhead = 1 << 20

type CompositionHandler struct {
	pipeline   *pipeline.Pipeline
	maxSize    int64
	previewMax int
}

func NewCompositionHandler(p *pipeline.Pipeline, maxSize int64, previewMax int) *CompositionHandler {
	return &CompositionHandler{
		pipeline:   p,
		maxSize:    maxSize,
		previewMax: previewMax,
	}
}

// Create 上传图片并开始合成
func (h *CompositionHandler) Create(c *gin.Context) {
	// 超限的请求体不读入内存
	if h.maxSize > 0 {
		limit := h.maxSize + multipartOverhead
		if c.Request.ContentLength > limit {
			respondError(c, pipeline.CheckSize("upload", c.Request.ContentLength, h.maxSize))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, pipeline.CheckSize("upload", tooLarge.Limit+1, h.maxSize))
			return
		}
		respondError(c, apperr.Validation("请上传图片文件: %v", err))
		return
	}
	if err := pipeline.CheckSize(file.Filename, file.Size, h.maxSize); err != nil {
		util.Logger.Warn("file rejected", zap.String("filename", file.Filename), zap.Int64("size", file.Size))
		respondError(c, err)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, apperr.Validation("open upload: %v", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, apperr.Validation("read upload: %v", err))
		return
	}

	util.Logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("md5", util.BytesMD5(data)),
		zap.Int64("size", file.Size))

	comp, err := h.pipeline.Select(c.Request.Context(), model.SourceImage{
		Name:        file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.CompositionResponse{
		Success: true,
		Message: "处理成功",
		Data:    comp,
	})
}

// Current 当前状态和合成
func (h *CompositionHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, h.state())
}

// UpdateOverlay 拖动/缩放/旋转前景框
func (h *CompositionHandler) UpdateOverlay(c *gin.Context) {
	id := c.Param("id")

	var req model.OverlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid overlay request: %v", err))
		return
	}

	if req.Select != nil {
		if err := h.pipeline.SetSelected(id, *req.Select); err != nil {
			respondError(c, err)
			return
		}
	}

	comp, err := h.pipeline.Manipulate(id, surface.Transform{
		DX:     req.DX,
		DY:     req.DY,
		ScaleX: req.ScaleX,
		ScaleY: req.ScaleY,
		Angle:  req.Angle,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CompositionResponse{
		Success: true,
		Message: "已更新",
		Data:    comp,
	})
}

// Preview 当前画面的缩略图
func (h *CompositionHandler) Preview(c *gin.Context) {
	maxSize := h.previewMax
	if v := c.Query("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, apperr.Validation("invalid max %q", v))
			return
		}
		maxSize = n
	}

	frame, err := h.pipeline.Frame(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := export.PreviewPNG(frame, maxSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

// Export 导出 PNG 作为附件下载，之后合成被销毁
func (h *CompositionHandler) Export(c *gin.Context) {
	download := export.DownloaderFunc(func(_ context.Context, a *export.Artifact) error {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", a.Data)
		return nil
	})

	if _, err := h.pipeline.Export(c.Request.Context(), c.Param("id"), download); err != nil {
		respondError(c, err)
	}
}

// Reset 放弃当前合成
func (h *CompositionHandler) Reset(c *gin.Context) {
	h.pipeline.Reset()
	c.JSON(http.StatusOK, h.state())
}

func (h *CompositionHandler) state() model.StateResponse {
	return model.StateResponse{
		Success:     true,
		State:       h.pipeline.State().String(),
		Composition: h.pipeline.Current(),
	}
}
