// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"hackrx-go/internal/config"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// Ingestor 是预热消费者依赖的摄取能力，与具体的流水线实现解耦。
type Ingestor interface {
	Ingest(ctx context.Context, documentRef string) (string, error)
}

// Publisher 发布文档摄取完成事件。
type Publisher interface {
	PublishIngested(ctx context.Context, event tasks.DocumentIngestedEvent) error
	Close() error
}

type writerPublisher struct {
	writer *kafka.Writer
}

// NewPublisher 初始化 Kafka 生产者。
func NewPublisher(cfg config.KafkaConfig) Publisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg.Brokers)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &writerPublisher{writer: w}
}

// PublishIngested 以文档指纹作为消息 key，同一文档的事件落在同一分区。
func (p *writerPublisher) PublishIngested(ctx context.Context, event tasks.DocumentIngestedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Fingerprint),
		Value: value,
	})
}

func (p *writerPublisher) Close() error {
	return p.writer.Close()
}

// StartConsumer 消费预热摄取主题，直到 ctx 被取消。
// 摄取失败只记录日志并提交 offset：同一文档的失败通常是确定性的，重试没有意义。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, ingestor Ingestor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.IngestTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.IngestTopic)
	var stats consumeStats
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Infow("Kafka 消费者已停止", "ingested", stats.ingested, "failed", stats.failed)
				return
			}
			log.Errorw("从 Kafka 读取消息失败", "ingested", stats.ingested, "failed", stats.failed, "error", err)
			return
		}

		ok := handleMessage(ctx, m.Value, ingestor)
		stats.observe(ok)
		log.Debugf("预热消息处理完成: partition=%d offset=%d ok=%t", m.Partition, m.Offset, ok)

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handleMessage 解析并处理一条预热消息，返回是否成功摄取。
func handleMessage(ctx context.Context, value []byte, ingestor Ingestor) bool {
	var req tasks.IngestRequest
	if err := json.Unmarshal(value, &req); err != nil || strings.TrimSpace(req.Documents) == "" {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return false
	}
	fingerprint, err := ingestor.Ingest(ctx, req.Documents)
	if err != nil {
		log.Errorw("预热摄取失败", "documents", req.Documents, "error", err)
		return false
	}
	log.Infof("预热摄取成功: fingerprint=%s", fingerprint)
	return true
}

// consumeStats 统计消费者生命周期内的摄取结果。
type consumeStats struct {
	ingested int
	failed   int
}

func (s *consumeStats) observe(ok bool) {
	if ok {
		s.ingested++
	} else {
		s.failed++
	}
}

func brokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
