// Package assets 打包进二进制的静态资源。
package assets

import _ "embed"

// OverlayName 前景框的文件名
const OverlayName = "yeezy_frame.png"

//go:embed yeezy_frame.png
var overlay []byte

// Overlay 返回前景框 PNG，调用方不得修改
func Overlay() []byte {
	return overlay
}
