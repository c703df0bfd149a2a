package model

import "time"

// Composition 当前合成的状态
type Composition struct {
	ID        string     `json:"id"`
	State     string     `json:"state"`
	Source    string     `json:"source,omitempty"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Overlay   *Placement `json:"overlay,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Placement 图层在画布上的位置
type Placement struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
	Angle  float64 `json:"angle"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Selected bool `json:"selected"`
}

// OverlayRequest 拖动/缩放/旋转前景图
type OverlayRequest struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	ScaleX float64 `json:"scale_x" binding:"gte=0"`
	ScaleY float64 `json:"scale_y" binding:"gte=0"`
	Angle  float64 `json:"angle"`
	Select *bool   `json:"select"`
}

// StateResponse 查询响应
type StateResponse struct {
	Success     bool         `json:"success"`
	State       string       `json:"state"`
	Composition *Composition `json:"composition,omitempty"`
}

// CompositionResponse 上传/调整响应
type CompositionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *Composition `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
