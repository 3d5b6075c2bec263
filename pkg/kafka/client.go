// Package kafka 提供了与 Kafka 消息队列交互的功能，用于异步导入任务。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/log"
	"insta-iq-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor 定义了可以处理导入任务的服务，使消费者与具体的 pipeline 实现解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestionTask) error
}

// Producer 发送导入任务。
type Producer interface {
	ProduceIngestionTask(ctx context.Context, task tasks.IngestionTask) error
	Close() error
}

type writerProducer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &writerProducer{writer: w}
}

// ProduceIngestionTask 以 profile 作为 key 发送任务，同一 profile 的任务进入同一分区。
func (p *writerProducer) ProduceIngestionTask(ctx context.Context, task tasks.IngestionTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Profile),
		Value: taskBytes,
	})
}

func (p *writerProducer) Close() error {
	return p.writer.Close()
}

// MessageReader 是消费者使用的 kafka.Reader 子集。
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader 按配置创建消费者组 reader。
func NewReader(cfg config.KafkaConfig) MessageReader {
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "insta-iq-go-consumer"
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

// Consume 循环读取导入任务直到 ctx 结束。每条消息只处理一次：无论成功失败都提交 offset，
// 失败结果记录在导入记录中，不做自动重试。
func Consume(ctx context.Context, r MessageReader, processor TaskProcessor) {
	log.Info("Kafka 消费者已启动")
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Kafka 消费者已停止")
			} else {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		var task tasks.IngestionTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := processor.Process(ctx, task); err != nil {
			log.Errorf("处理导入任务失败: RunID=%s, Profile=%s, Error: %v", task.RunID, task.Profile, err)
		} else {
			log.Infof("导入任务处理成功: RunID=%s, Profile=%s", task.RunID, task.Profile)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
