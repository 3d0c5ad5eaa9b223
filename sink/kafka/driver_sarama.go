package kafka

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"beanexport/internal/ledger"
	"beanexport/internal/logging"
	"beanexport/sink"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
	// Key is set on every message so one export lands on one partition and
	// keeps its order. Defaults to the topic name.
	Key string `yaml:"key"`
}

// HeaderKind carries the directive kind of each message.
const HeaderKind = "beanexport-kind"

// driver publishes one message per directive; the value is a one-element
// stream document so source/kafka can read the topic back.
type driver struct {
	cfg Config
	p   sarama.SyncProducer
}

// NewWithProducer builds a sink on an existing producer, e.g. a
// sarama/mocks producer in tests.
func NewWithProducer(cfg Config, p sarama.SyncProducer) sink.Adapter {
	if cfg.Key == "" {
		cfg.Key = cfg.Topic
	}
	return &driver{cfg: cfg, p: p}
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config")
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	if cfg.Key == "" {
		cfg.Key = cfg.Topic
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.ClientID = "beanexport"
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	var err error
	d.p, err = sarama.NewSyncProducer(cfg.Brokers, sc)
	return err
}

func (d *driver) Write(_ context.Context, entries ledger.Entries) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(entries))
	for i, e := range entries {
		var buf bytes.Buffer
		if err := ledger.Encode(&buf, ledger.Entries{e}); err != nil {
			return fmt.Errorf("kafka-sink: entry %d: %w", i, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: d.cfg.Topic,
			Key:   sarama.StringEncoder(d.cfg.Key),
			Value: sarama.ByteEncoder(buf.Bytes()),
			Headers: []sarama.RecordHeader{
				{Key: []byte(HeaderKind), Value: []byte(e.Kind())},
			},
		})
	}
	if err := d.p.SendMessages(msgs); err != nil {
		return fmt.Errorf("kafka-sink: %w", err)
	}
	logging.L().Info("kafka-sink: published",
		zap.String("topic", d.cfg.Topic), zap.Int("messages", len(msgs)))
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
