// cmd/delay-scheduler/main.go
package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/bootstrap"
	"mall/internal/pkg/mq"
	"mall/internal/pkg/tracing"
)

const serviceName = "delay-scheduler"

// 支持的延迟级别和对应的主题。同一主题内所有消息延迟相同，
// 队头未到期则后续消息必然未到期，轮询只需检查队头。
var delayLevels = map[string]time.Duration{
	"delay_topic_5s":  5 * time.Second,
	"delay_topic_1m":  1 * time.Minute,
	"delay_topic_10m": 10 * time.Minute,
	"delay_topic_30m": 30 * time.Minute,
}

var tracer = otel.Tracer(serviceName)

// Scheduler 负责单个延迟级别的轮询搬运。
type Scheduler struct {
	level        string
	delay        time.Duration
	brokers      []string
	kafkaReader  *kafka.Reader
	kafkaWriters map[string]*kafka.Writer // key: realTopic
	writerLock   sync.Mutex
}

func NewScheduler(brokers []string, level string, delay time.Duration) *Scheduler {
	return &Scheduler{
		level:        level,
		delay:        delay,
		brokers:      brokers,
		kafkaReader:  mq.NewKafkaReader(brokers, level, serviceName+"-group-"+level),
		kafkaWriters: make(map[string]*kafka.Writer),
	}
}

// StartPolling 启动定时轮询器，随 ctx 取消退出。
func (s *Scheduler) StartPolling(ctx context.Context, interval time.Duration) {
	log.Printf("polling scheduler for level '%s' started, checking every %v", s.level, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.kafkaReader.Close()
	defer s.closeWriters()

	for {
		select {
		case <-ticker.C:
			s.checkAndPublish(ctx)
		case <-ctx.Done():
			log.Printf("shutting down polling for level '%s'", s.level)
			return
		}
	}
}

// checkAndPublish 搬运队头所有已到期的消息。
func (s *Scheduler) checkAndPublish(parentCtx context.Context) {
	for {
		msg, err := s.kafkaReader.FetchMessage(parentCtx)
		if err != nil {
			// 无消息可读或上下文取消，等待下一次 tick
			return
		}

		spanCtx := mq.ExtractTraceContext(parentCtx, msg.Headers)
		now := time.Now().UTC()
		ctx, span := tracer.Start(spanCtx, "scheduler.CheckAndPublish", trace.WithAttributes(
			attribute.String("delay.level", s.level),
		))

		if now.Before(s.deliveryTime(msg)) {
			// 队头消息未到期，后续消息更不会到期
			span.AddEvent("HeadMessageNotDue")
			span.End()
			return
		}

		realTopic := getHeader(msg.Headers, "real-topic")
		if realTopic == "" {
			log.Printf("ERROR: 'real-topic' header missing in message from '%s', skipping", s.level)
			if err := s.kafkaReader.CommitMessages(ctx, msg); err != nil {
				log.Printf("ERROR: failed to commit skipped message: %v", err)
			}
			span.End()
			continue
		}

		if err := s.publish(ctx, realTopic, msg); err != nil {
			// 投递失败不提交 offset，下次轮询重试
			log.Printf("ERROR: failed to publish to real topic '%s': %v", realTopic, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to publish to real topic")
			span.End()
			return
		}

		if err := s.kafkaReader.CommitMessages(ctx, msg); err != nil {
			log.Printf("ERROR: failed to commit after publish to '%s': %v", realTopic, err)
			span.RecordError(err)
			span.End()
			return
		}
		span.AddEvent("MessagePublishedAndCommitted",
			trace.WithAttributes(attribute.String("real.topic", realTopic)))
		span.End()
	}
}

// deliveryTime 计算消息的理论投递时间。
// 优先使用生产方写入的 delay-deadline 头，缺失时退回 消息时间+级别延迟。
func (s *Scheduler) deliveryTime(msg kafka.Message) time.Time {
	if raw := getHeader(msg.Headers, "delay-deadline"); raw != "" {
		if deadline, err := time.Parse(time.RFC3339, raw); err == nil {
			return deadline.UTC()
		}
	}
	return msg.Time.Add(s.delay).UTC()
}

// publish 把消息投递到真实业务主题，保留 key 和链路上下文。
func (s *Scheduler) publish(ctx context.Context, realTopic string, msg kafka.Message) error {
	s.writerLock.Lock()
	writer, exists := s.kafkaWriters[realTopic]
	if !exists {
		writer = mq.NewKafkaWriter(s.brokers, realTopic)
		s.kafkaWriters[realTopic] = writer
	}
	s.writerLock.Unlock()

	publishMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
	}
	traceCtx := mq.ExtractTraceContext(ctx, msg.Headers)
	mq.InjectTraceContext(traceCtx, &publishMsg.Headers)

	return writer.WriteMessages(ctx, publishMsg)
}

func (s *Scheduler) closeWriters() {
	s.writerLock.Lock()
	defer s.writerLock.Unlock()
	for topic, writer := range s.kafkaWriters {
		if err := writer.Close(); err != nil {
			log.Printf("ERROR: failed to close writer for topic %s: %v", topic, err)
		}
	}
}

func getHeader(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for level, delay := range delayLevels {
		wg.Add(1)
		scheduler := NewScheduler(cfg.Infra.Kafka.Brokers, level, delay)
		go func() {
			defer wg.Done()
			scheduler.StartPolling(ctx, time.Second)
		}()
	}

	log.Println("all polling schedulers are running")
	wg.Wait()
}
