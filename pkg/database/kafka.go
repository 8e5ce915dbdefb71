package database

import (
	"context"
	"fmt"
	"time"

	"chat_sync_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 嘗試建立 Kafka Writer 並確認 topic 可連線
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	var err error

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialLeader(context.Background(), "tcp", k.Brokers[0], k.Topic, 0)
		if err == nil {
			conn.Close()
			logger.Log.Info("kafka writer ready", zap.String("topic", k.Topic), zap.Int("attempt", attempt))
			return newWriter(k), nil
		}

		logger.Log.Warn("kafka dial failed, retrying...",
			zap.String("topic", k.Topic),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("kafka writer for %s failed after %d attempts: %w", k.Topic, k.RetryCount, err)
}

// writerBatchTimeout bounds how long a synchronous WriteMessages waits for a
// batch to fill; the library default of one second would sit on every send
const writerBatchTimeout = 10 * time.Millisecond

func newWriter(k KafkaConnection) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(k.Brokers...),
		Topic:        k.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: writerBatchTimeout,
	}
}

// NewKafkaReader create a consumer-group reader. Offsets are committed explicitly
// by the caller so a message is only acknowledged after it was handled.
func NewKafkaReader(k KafkaConnection) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.Brokers,
		GroupID:  k.GroupID,
		Topic:    k.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
