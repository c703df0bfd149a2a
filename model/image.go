package model

// SourceImage 用户选中的原图
type SourceImage struct {
	Name        string
	ContentType string
	Data        []byte
}

func (s SourceImage) Size() int64 {
	return int64(len(s.Data))
}

// CutoutImage 抠图服务返回的透明背景图
type CutoutImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int

	// Source 对应的原图文件名
	Source string
}
