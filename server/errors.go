package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/model"
	"github.com/chaos-io/yeezyframe/util"
)

// StatusOf 错误类别对应的 HTTP 状态码
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindBusy, apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindRemovalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "文件校验失败，仅支持不超过 4MB 的图片"
	case apperr.KindBusy:
		return "上一张图片还在处理中"
	case apperr.KindInvalidState:
		return "当前状态不允许该操作"
	case apperr.KindRemovalService:
		return "抠图失败，请重新选择图片"
	case apperr.KindComposition:
		return "合成失败"
	case apperr.KindExport:
		return "导出失败"
	default:
		return "服务器内部错误"
	}
}

func respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		util.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: messageOf(err),
		Error:   err.Error(),
	})
}
