// internal/pkg/httpclient/client.go

package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver 把逻辑服务名解析为 "host:port"。
// 生产环境由 Nacos 实现，本地/测试用 StaticResolver。
type Resolver interface {
	Resolve(serviceName string) (string, error)
}

// StaticResolver 是一张固定的 服务名 -> 地址 映射表。
type StaticResolver map[string]string

func (r StaticResolver) Resolve(serviceName string) (string, error) {
	addr, ok := r[serviceName]
	if !ok {
		return "", fmt.Errorf("no static address configured for service %q", serviceName)
	}
	return addr, nil
}

// StatusError 表示远端返回了非 2xx 状态码。
// 调用方用它区分「明确拒绝」(4xx) 和「服务故障」(5xx)。
type StatusError struct {
	Service string
	Path    string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d for %s", e.Service, e.Code, e.Path)
}

// Client 是一个可追踪的、可注入的 HTTP 客户端。
// 不设置客户端级 Timeout，每次调用带独立超时，完全受控于 context。
type Client struct {
	Tracer      trace.Tracer
	HTTPClient  *http.Client
	resolver    Resolver
	callTimeout time.Duration
}

// NewClient 创建一个新的客户端实例。
func NewClient(tracer trace.Tracer, resolver Resolver, callTimeout time.Duration) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:      tracer,
		HTTPClient:  httpClient,
		resolver:    resolver,
		callTimeout: callTimeout,
	}
}

// GetJSON 向目标服务发起 GET 请求，并把响应体解码到 out。
func (c *Client) GetJSON(ctx context.Context, service, path string, query url.Values, out interface{}) error {
	body, err := c.call(ctx, http.MethodGet, service, path, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// PutJSON 向目标服务发起 PUT 请求，out 可为 nil。
func (c *Client) PutJSON(ctx context.Context, service, path string, query url.Values, out interface{}) error {
	body, err := c.call(ctx, http.MethodPut, service, path, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// call 是所有请求的公共路径：解析地址、开 Span、注入链路头、限定超时。
func (c *Client) call(ctx context.Context, method, service, path string, query url.Values) ([]byte, error) {
	addr, err := c.resolver.Resolve(service)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", service, err)
	}

	ctx, span := c.Tracer.Start(ctx, fmt.Sprintf("call-%s", service), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// 每次远端调用带独立超时，单个慢调用不会拖垮整个流程
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	u := url.URL{Scheme: "http", Host: addr, Path: path}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("http.url", u.String()),
		attribute.String("http.method", method),
		attribute.String("peer.service", service),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Service: service, Path: path, Code: resp.StatusCode}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}
	return body, nil
}
