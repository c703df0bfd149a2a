package util

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	nhttp "github.com/chaos-io/yeezyframe/util/http"
)

// File 读取到的原始文件
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadFile 读取本地文件或者下载 http(s) 地址
func ReadFile(ctx context.Context, cli nhttp.IClient, src string) (*File, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return downloadFile(ctx, cli, src)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        filepath.Base(src),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func downloadFile(ctx context.Context, cli nhttp.IClient, src string) (*File, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}

	var data []byte
	param := &nhttp.RequestParam{
		RequestURI: src,
		Method:     "GET",
		Response:   &data,
	}
	if err := cli.DoHTTPRequest(ctx, param); err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}

	contentType := param.ResponseHeader.Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &File{
		Name:        path.Base(u.Path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
