// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/nacos"
)

// Client 是一个可追踪的、基于 Nacos 服务发现的 HTTP 客户端。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	registry   *nacos.Client
}

// NewClient 创建一个新的客户端实例
func NewClient(tracer trace.Tracer, registry *nacos.Client) *Client {
	// 不设置全局 Timeout，完全受控于每次请求传入的 context
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		registry:   registry,
	}
}

// resolve 通过 Nacos 把服务名解析成一个健康实例的 base URL。
func (c *Client) resolve(serviceName string) (string, error) {
	ip, port, err := c.registry.DiscoverServiceInstance(serviceName)
	if err != nil {
		return "", errors.Wrapf(err, "resolve service %s", serviceName)
	}
	return fmt.Sprintf("http://%s:%d", ip, port), nil
}

// CallService 向目标服务发起一次 POST 调用，参数通过 query string 传递。
// 只关心成功与否，不解析响应体。
func (c *Client) CallService(ctx context.Context, serviceName, path string, params url.Values) error {
	return c.do(ctx, http.MethodPost, serviceName, path, params, nil, nil)
}

// PostJSON 向目标服务发送 JSON 请求体，并将响应体解码到 respBody（可为 nil）。
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, reqBody, respBody interface{}) error {
	return c.do(ctx, http.MethodPost, serviceName, path, nil, reqBody, respBody)
}

// GetJSON 发起 GET 调用并将响应体解码到 respBody。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, params url.Values, respBody interface{}) error {
	return c.do(ctx, http.MethodGet, serviceName, path, params, nil, respBody)
}

func (c *Client) do(ctx context.Context, method, serviceName, path string, params url.Values, reqBody, respBody interface{}) error {
	spanName := fmt.Sprintf("call-%s", serviceName)
	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	base, err := c.resolve(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	downstreamURL, err := url.Parse(base + path)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if params != nil {
		downstreamURL.RawQuery = params.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "marshal request body")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, downstreamURL.String(), body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", downstreamURL.String()),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := errors.Errorf("service %s%s returned status %s: %s", serviceName, path, resp.Status, snippet)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "decode response body")
		}
	}
	return nil
}
