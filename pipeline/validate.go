package pipeline

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/model"
)

const octetStream = "application/octet-stream"

// Validate 只接受图片类型，且大小不超过 maxSize（含）
//
// 声明的类型为空或者是 octet-stream 时按内容识别
func Validate(src model.SourceImage, maxSize int64) (model.SourceImage, error) {
	if len(src.Data) == 0 {
		return src, apperr.Validation("file %q is empty", src.Name)
	}

	contentType := strings.ToLower(strings.TrimSpace(src.ContentType))
	if contentType == "" || strings.HasPrefix(contentType, octetStream) {
		contentType = mimetype.Detect(src.Data).String()
	}
	if !strings.HasPrefix(contentType, "image/") {
		return src, apperr.Validation("file %q is not an image (%s)", src.Name, contentType)
	}

	if err := CheckSize(src.Name, src.Size(), maxSize); err != nil {
		return src, err
	}

	src.ContentType = contentType
	return src, nil
}

// CheckSize size 超过 maxSize 时返回校验错误，maxSize <= 0 不限制
func CheckSize(name string, size, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return apperr.Validation("file %q is %d bytes, the limit is %d bytes (%d MiB)",
			name, size, maxSize, maxSize/(1024*1024))
	}
	return nil
}
