package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"github.com/alumnihub/backend/core"
)

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   core.Logger
}

var _ core.EventPublisher = (*kafkaPublisher)(nil)

// NewKafkaConfig returns the sarama config used by the publisher: acks from all in-sync replicas, and retries.
func NewKafkaConfig(conf *core.Config) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = conf.AppName
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewHashPartitioner // same key, same partition
	return config
}

// NewKafkaPublisher connects a synchronous producer to conf.Kafka.Brokers, waiting for the brokers to come up.
func NewKafkaPublisher(conf *core.Config, logger core.Logger) (core.EventPublisher, error) {
	config := NewKafkaConfig(conf)

	var producer sarama.SyncProducer
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		producer, err = sarama.NewSyncProducer(conf.Kafka.Brokers, config)
		if err == nil {
			return NewKafkaPublisherWithProducer(producer, conf.Kafka.Topic, logger), nil
		}
		logger.Warn(fmt.Sprintf("waiting for kafka... (%d/%d): %v", attempts, maxAttempts, err))
		time.Sleep(time.Duration(attempts) * 500 * time.Millisecond)
	}
	return nil, errors.Wrap(err, "connecting kafka producer")
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger core.Logger) core.EventPublisher {
	return &kafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...core.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, evt := range events {
		data, err := json.Marshal(evt)
		if err != nil {
			return errors.Wrapf(err, "marshalling %s event", evt.Type)
		}
		msg := &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.StringEncoder(evt.Key),
			Value:     sarama.ByteEncoder(data),
			Timestamp: evt.OccurredAt,
			Headers: []sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(evt.Type)},
			},
		}
		msgs = append(msgs, msg)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.producer.SendMessages(msgs); err != nil {
		return errors.Wrap(err, "sending events")
	}
	for _, evt := range events {
		p.logger.Debug(fmt.Sprintf("published %s event (key %s)", evt.Type, evt.Key))
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
