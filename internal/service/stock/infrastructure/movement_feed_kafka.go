// internal/service/stock/infrastructure/movement_feed_kafka.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"mall/internal/pkg/logger"
	"mall/internal/pkg/mq"
	"mall/internal/service/stock/domain"
)

// MovementTopic 是库存流水事件主题，供审计与运营端实时订阅。
const MovementTopic = "stock-movement-topic"

// KafkaMovementFeed 把账本流水投递到 Kafka。
// 账本事务已提交，投递是 best-effort: 失败只记日志，流水表仍是权威记录。
type KafkaMovementFeed struct {
	writer *kafka.Writer
}

func NewKafkaMovementFeed(brokers []string) *KafkaMovementFeed {
	return &KafkaMovementFeed{
		writer: mq.NewKafkaWriter(brokers, MovementTopic),
	}
}

func (f *KafkaMovementFeed) Publish(ctx context.Context, movement domain.StockMovement) {
	payload, err := json.Marshal(movement)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to marshal stock movement")
		return
	}
	msg := kafka.Message{
		// 同一 SKU 的流水落在同一分区，消费端按序重放
		Key:   []byte(movement.SkuID),
		Value: payload,
	}
	mq.InjectTraceContext(ctx, &msg.Headers)

	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("sku", movement.SkuID).
			Str("op", string(movement.Operation)).
			Msg("failed to publish stock movement")
	}
}

// Close 关闭底层 writer。
func (f *KafkaMovementFeed) Close() error {
	return f.writer.Close()
}
