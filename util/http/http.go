package http

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 一次请求的参数和结果
//
// Body 支持 nil、io.Reader、[]byte，其余类型按 JSON 序列化。
// Response 支持 nil（丢弃）、*[]byte（原始字节）、io.Writer，其余类型按 JSON 反序列化。
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	// ResponseHeader 请求成功后由客户端填写
	ResponseHeader http.Header

	Timeout time.Duration
}
