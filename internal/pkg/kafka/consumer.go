package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageHandler returns an error to have the failure logged; the offset is
// committed either way so one poison message cannot stall the group.
type MessageHandler func(ctx context.Context, value []byte) error

func StartConsumer(ctx context.Context, brokers []string, topic, groupID string, handle MessageHandler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer reader.Close()

	logrus.WithFields(logrus.Fields{
		"brokers":  brokers,
		"topic":    topic,
		"group_id": groupID,
	}).Info("Detection audit consumer started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logrus.WithError(err).Error("Error reading message from Kafka")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		entry := logrus.WithFields(logrus.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})

		if err := handle(ctx, msg.Value); err != nil {
			entry.WithError(err).Error("Failed to handle message")
		}
	}
}
