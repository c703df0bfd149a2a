package export

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/util"
)

// Downloader 把导出结果交给用户（浏览器下载、写文件）
type Downloader interface {
	Download(ctx context.Context, a *Artifact) error
}

// DownloaderFunc 函数适配 Downloader
type DownloaderFunc func(ctx context.Context, a *Artifact) error

func (f DownloaderFunc) Download(ctx context.Context, a *Artifact) error {
	return f(ctx, a)
}

// DirDownloader 写入本地目录
type DirDownloader struct {
	Dir string
}

func NewDirDownloader(dir string) *DirDownloader {
	return &DirDownloader{Dir: dir}
}

func (d *DirDownloader) Download(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return apperr.Export(err, "download %s", a.Name)
	}
	if err := os.MkdirAll(d.Dir, os.ModePerm); err != nil {
		return apperr.Export(err, "create output dir")
	}

	path := d.Path(a)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return apperr.Export(err, "write %s", path)
	}

	util.Logger.Info("artifact saved", zap.String("path", path))
	return nil
}

// Path 导出文件的完整路径
func (d *DirDownloader) Path(a *Artifact) string {
	return filepath.Join(d.Dir, filepath.Base(a.Name))
}
