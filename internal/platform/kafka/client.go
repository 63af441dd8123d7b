package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"semaforo/internal/platform/config"
)

// New connects a producer client to the configured brokers and makes sure
// the audit topic exists. Returns nil if no brokers are configured.
func New(ctx context.Context, cfg config.KafkaConfig) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	if err := EnsureTopic(ctx, kadm.NewClient(client), cfg.Topic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// EnsureTopic creates topic when it does not exist yet.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32, replication int16) error {
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
