// internal/service/order/interfaces/timeout_consumer.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"mall/internal/pkg/logger"
	"mall/internal/pkg/mq"
	"mall/internal/service/order/application"
	"mall/internal/service/order/domain"
)

// PaymentTimeoutTopic 承载延迟队列到期后投递的支付超时检查事件。
const PaymentTimeoutTopic = "order-timeout-check-topic"

// TimeoutConsumer 是驱动适配器: 消费到期的超时检查事件并驱动应用服务。
type TimeoutConsumer struct {
	reader *kafka.Reader
	appSvc *application.OrderApplicationService
	wg     sync.WaitGroup
}

func NewTimeoutConsumer(reader *kafka.Reader, appSvc *application.OrderApplicationService) *TimeoutConsumer {
	return &TimeoutConsumer{reader: reader, appSvc: appSvc}
}

// Start 启动消费循环，随 ctx 取消而退出。
func (c *TimeoutConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", c.reader.Config().Topic).Msg("timeout consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("timeout consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("fetch timeout check message failed")
				time.Sleep(time.Second)
				continue
			}

			c.processMessage(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("commit timeout check offset failed")
			}
		}
	}()
}

// Stop 优雅停止消费者。
func (c *TimeoutConsumer) Stop() {
	_ = c.reader.Close()
	c.wg.Wait()
}

func (c *TimeoutConsumer) processMessage(parentCtx context.Context, msg kafka.Message) {
	var event domain.PaymentTimeoutCheckEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(parentCtx).Error().Err(err).Msg("malformed timeout check event, skipped")
		return
	}

	propagator := otel.GetTextMapPropagator()
	headerCarrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx := propagator.Extract(parentCtx, &headerCarrier)

	if err := c.appSvc.ProcessTimeoutCheck(ctx, &event); err != nil {
		// 提交 offset 前已尽力处理，兜底扫描会再次覆盖该订单。
		logger.Ctx(ctx).Error().Err(err).
			Str("order_ref", event.OrderRef).
			Msg("timeout check processing failed")
	}
}
