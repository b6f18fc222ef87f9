// cmd/api-gateway/main.go
package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/bootstrap"
	"mall/internal/pkg/constants"
	"mall/internal/pkg/logger"
	"mall/internal/pkg/nacos"
)

const serviceName = "api-gateway"

// gateway 是买家侧的统一入口，把外部请求转发到 Nacos 发现的内部服务。
// 网关本身无业务逻辑，只负责路由、追踪上下文注入和透传响应。
type gateway struct {
	registry *nacos.Client
	tracer   trace.Tracer
	client   *http.Client
}

func (g *gateway) register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	// 订单生命周期
	mux.HandleFunc("/create_order", g.forward(constants.OrderService))
	mux.HandleFunc("/cancel_order", g.forward(constants.OrderService))
	mux.HandleFunc("/payment_callback", g.forward(constants.OrderService))
	mux.HandleFunc("/ship_order", g.forward(constants.OrderService))
	mux.HandleFunc("/confirm_receipt", g.forward(constants.OrderService))
	mux.HandleFunc("/get_order", g.forward(constants.OrderService))

	// 商品页库存气泡
	mux.HandleFunc(constants.StockHasStockPath, g.forward(constants.StockService))

	// 营销
	mux.HandleFunc("/grant_coupon", g.forward(constants.PromotionService))
}

// forward 生成一个把请求原样转发到目标服务的处理器。
func (g *gateway) forward(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := g.tracer.Start(r.Context(), "gateway."+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("gateway.target", target),
			attribute.String("http.method", r.Method),
		)

		ip, port, err := g.registry.DiscoverServiceInstance(target)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "no healthy instance")
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		downstreamURL := &url.URL{
			Scheme:   "http",
			Host:     fmt.Sprintf("%s:%d", ip, port),
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
		}

		req, err := http.NewRequestWithContext(ctx, r.Method, downstreamURL.String(), r.Body)
		if err != nil {
			span.RecordError(err)
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := g.client.Do(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "downstream call failed")
			logger.Ctx(ctx).Error().Err(err).Str("target", target).Msg("proxy failed")
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}

func main() {
	bootstrap.Init()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8080,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			g := &gateway{
				registry: appCtx.Nacos,
				tracer:   otel.Tracer(serviceName),
				client: &http.Client{
					Transport: &http.Transport{
						MaxIdleConns:        100,
						MaxIdleConnsPerHost: 100,
					},
				},
			}
			g.register(appCtx.Mux)
		},
	})
}
