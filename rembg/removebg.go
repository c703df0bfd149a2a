package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/apperr"
	"github.com/chaos-io/yeezyframe/metrics"
	"github.com/chaos-io/yeezyframe/model"
	"github.com/chaos-io/yeezyframe/util"
	nhttp "github.com/chaos-io/yeezyframe/util/http"
)

const (
	RemoveBGModel = "remove.bg"

	fieldImageFile = "image_file"
	fieldSize      = "size"
	headerAPIKey   = "X-Api-Key"

	defaultSize = "auto"
)

type Options struct {
	APIURL  string
	APIKey  string
	Size    string
	Timeout time.Duration
}

// BreakerOptions 连续失败后直接拒绝请求，避免每次选图都等到超时
type BreakerOptions struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

type Option func(*RemoveBG)

func WithClient(cli nhttp.IClient) Option {
	return func(r *RemoveBG) { r.cli = cli }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(r *RemoveBG) { r.metrics = c }
}

func WithBreaker(opts BreakerOptions) Option {
	return func(r *RemoveBG) {
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        RemoveBGModel,
			MaxRequests: opts.MaxRequests,
			Interval:    opts.Interval,
			Timeout:     opts.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < opts.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.FailureRatio
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				util.Logger.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
			IsSuccessful: func(err error) bool {
				// 调用方自己取消的请求不算服务失败
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
	}
}

// RemoveBG 调用 remove.bg 风格的抠图接口:
//
//	curl -X POST "$API_URL" \
//	  -H "X-Api-Key: $API_KEY" \
//	  -F "image_file=@photo.jpg" \
//	  -F "size=auto"
type RemoveBG struct {
	opts    Options
	cli     nhttp.IClient
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

func NewRemoveBG(opts Options, options ...Option) *RemoveBG {
	if opts.Size == "" {
		opts.Size = defaultSize
	}
	r := &RemoveBG{opts: opts}
	for _, o := range options {
		o(r)
	}
	if r.cli == nil {
		r.cli = nhttp.NewHTTPClient(nhttp.WithTimeout(opts.Timeout))
	}
	return r
}

func (r *RemoveBG) Remove(ctx context.Context, src model.SourceImage) (*model.CutoutImage, error) {
	// 缺少配置时直接失败，不发请求
	if r.opts.APIURL == "" {
		return nil, apperr.RemovalService(nil, "removal endpoint is not configured")
	}
	if r.opts.APIKey == "" {
		return nil, apperr.RemovalService(nil, "removal api key is not configured")
	}

	start := time.Now()
	cutout, err := r.execute(ctx, src)
	r.metrics.ObserveRemoval(err, time.Since(start))
	if err != nil {
		util.Logger.Warn("background removal failed",
			zap.String("source", src.Name),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	util.Logger.Info("background removed",
		zap.String("source", src.Name),
		zap.Int("width", cutout.Width),
		zap.Int("height", cutout.Height),
		zap.Duration("cost", time.Since(start)))
	return cutout, nil
}

func (r *RemoveBG) execute(ctx context.Context, src model.SourceImage) (*model.CutoutImage, error) {
	if r.breaker == nil {
		return r.do(ctx, src)
	}

	v, err := r.breaker.Execute(func() (interface{}, error) {
		return r.do(ctx, src)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &apperr.Error{
			Kind:       apperr.KindRemovalService,
			Message:    "removal service temporarily unavailable",
			StatusCode: http.StatusServiceUnavailable,
			Status:     http.StatusText(http.StatusServiceUnavailable),
			Err:        err,
		}
	}
	if err != nil {
		return nil, err
	}
	cutout, _ := v.(*model.CutoutImage)
	return cutout, nil
}

func (r *RemoveBG) do(ctx context.Context, src model.SourceImage) (*model.CutoutImage, error) {
	body, contentType, err := newForm(src, r.opts.Size)
	if err != nil {
		return nil, apperr.RemovalService(err, "build request")
	}

	var data []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: r.opts.APIURL,
		Method:     http.MethodPost,
		Header: map[string]string{
			"Content-Type": contentType,
			headerAPIKey:   r.opts.APIKey,
		},
		Body:     body,
		Response: &data,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		var statusErr *nhttp.StatusError
		if errors.As(err, &statusErr) {
			util.Logger.Debug("removal service rejected request",
				zap.Int("status", statusErr.StatusCode),
				zap.String("body", statusErr.Body))
			return nil, apperr.RemovalStatus(statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
		}
		return nil, apperr.RemovalService(err, "do request")
	}

	return NewCutout(data, src.Name)
}

func newForm(src model.SourceImage, size string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := src.Name
	if name == "" {
		name = "image"
	}
	part, err := writer.CreateFormFile(fieldImageFile, name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(src.Data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.WriteField(fieldSize, size); err != nil {
		return nil, "", fmt.Errorf("write size field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
