package sink

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/circulars-cli/internal/model"
)

// Kafka publishes one message per record. The key is the target's
// category/subfolder and the value is the record JSON.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka connects a synchronous producer to brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "sink: kafka producer")
	}
	return NewKafkaWithProducer(producer, topic), nil
}

// NewKafkaWithProducer wraps an existing producer.
func NewKafkaWithProducer(p sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: p, topic: topic}
}

func (k *Kafka) Write(ctx context.Context, result *model.RunResult) error {
	if err := checkResult(result); err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "sink: kafka")
	}

	key := sarama.StringEncoder(result.Target.Key())
	msgs := make([]*sarama.ProducerMessage, 0, len(result.Records))
	for _, r := range result.Records {
		value, err := json.Marshal(r)
		if err != nil {
			return eris.Wrap(err, "sink: marshal record")
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   key,
			Value: sarama.ByteEncoder(value),
		})
	}
	if err := k.producer.SendMessages(msgs); err != nil {
		return eris.Wrapf(err, "sink: publish %d records to %s", len(msgs), k.topic)
	}
	zap.L().Info("sink: published records",
		zap.String("topic", k.topic),
		zap.String("key", result.Target.Key()),
		zap.Int("count", len(msgs)),
	)
	return nil
}

func (k *Kafka) Close() error {
	return eris.Wrap(k.producer.Close(), "sink: close kafka producer")
}
