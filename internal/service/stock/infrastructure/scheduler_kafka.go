// internal/service/stock/infrastructure/scheduler_kafka.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"mall/internal/pkg/mq"
)

const (
	// PaymentTimeoutTopic 是到期后真正投递的目标主题，由订单服务消费。
	PaymentTimeoutTopic = "order-timeout-check-topic"
)

// 延迟等级从小到大排列，调度时选择不超过剩余时长的最大等级，
// 差值由订单服务消费时的状态守卫吸收（提早检查到未到期的单子是 no-op）。
var delayLevels = []struct {
	topic string
	delay time.Duration
}{
	{"delay_topic_5s", 5 * time.Second},
	{"delay_topic_1m", 1 * time.Minute},
	{"delay_topic_10m", 10 * time.Minute},
	{"delay_topic_30m", 30 * time.Minute},
}

// paymentTimeoutEvent 是支付超时检查消息的线上契约。
type paymentTimeoutEvent struct {
	OrderRef  string    `json:"orderRef"`
	Deadline  time.Time `json:"deadline"`
	CreatedAt time.Time `json:"createdAt"`
}

// KafkaTimeoutScheduler 通过延迟主题调度支付超时检查。
// 消息先进入 delay_topic_*，由 delay-scheduler 轮询搬运到真实主题。
type KafkaTimeoutScheduler struct {
	writers map[string]*kafka.Writer
}

func NewKafkaTimeoutScheduler(brokers []string) *KafkaTimeoutScheduler {
	writers := make(map[string]*kafka.Writer, len(delayLevels))
	for _, level := range delayLevels {
		writers[level.topic] = mq.NewKafkaWriter(brokers, level.topic)
	}
	return &KafkaTimeoutScheduler{writers: writers}
}

// SchedulePaymentTimeout 把超时检查任务写入合适的延迟等级主题。
func (a *KafkaTimeoutScheduler) SchedulePaymentTimeout(ctx context.Context, orderRef string, deadline time.Time) error {
	event := paymentTimeoutEvent{
		OrderRef:  orderRef,
		Deadline:  deadline,
		CreatedAt: time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(orderRef),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "real-topic", Value: []byte(PaymentTimeoutTopic)},
			{Key: "delay-deadline", Value: []byte(deadline.Format(time.RFC3339))},
		},
	}
	mq.InjectTraceContext(ctx, &msg.Headers)

	return a.writers[pickLevel(time.Until(deadline))].WriteMessages(ctx, msg)
}

// pickLevel 选择不超过剩余时长的最大延迟等级。
func pickLevel(remaining time.Duration) string {
	topic := delayLevels[0].topic
	for _, level := range delayLevels {
		if level.delay <= remaining {
			topic = level.topic
		}
	}
	return topic
}

// Close 关闭所有 writer。
func (a *KafkaTimeoutScheduler) Close() error {
	for _, w := range a.writers {
		_ = w.Close()
	}
	return nil
}
