package kafka

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"beanexport/internal/ledger"
	"beanexport/internal/logging"
	"beanexport/source"
)

// OffsetFunc reports the oldest or next offset of a partition, with the
// semantics of sarama.Client.GetOffset.
type OffsetFunc func(topic string, partition int32, time int64) (int64, error)

// SaramaDriver reads one partition of a topic from its oldest offset up to
// the high-water mark observed when Read starts. Every message is a stream
// document (as written by sink/kafka); the decoded streams are concatenated
// in offset order.
type SaramaDriver struct {
	cfg      Config
	cl       sarama.Client
	consumer sarama.Consumer
	offset   OffsetFunc
}

// NewWithConsumer builds a driver on an existing consumer, e.g. a
// sarama/mocks consumer in tests.
func NewWithConsumer(cfg Config, c sarama.Consumer, offset OffsetFunc) *SaramaDriver {
	applyDefaults(&cfg)
	return &SaramaDriver{cfg: cfg, consumer: c, offset: offset}
}

func (d *SaramaDriver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-source: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-source: brokers and topic are required")
	}
	applyDefaults(&cfg)
	d.cfg = cfg

	sc, err := cfg.sarama()
	if err != nil {
		return err
	}
	if d.cl, err = sarama.NewClient(cfg.Brokers, sc); err != nil {
		return err
	}
	if d.consumer, err = sarama.NewConsumerFromClient(d.cl); err != nil {
		_ = d.cl.Close()
		return err
	}
	d.offset = d.cl.GetOffset
	return nil
}

func (d *SaramaDriver) Read(ctx context.Context) (ledger.Entries, error) {
	topic, part := d.cfg.Topic, d.cfg.Partition
	oldest, err := d.offset(topic, part, sarama.OffsetOldest)
	if err != nil {
		return nil, fmt.Errorf("kafka-source: oldest offset: %w", err)
	}
	next, err := d.offset(topic, part, sarama.OffsetNewest)
	if err != nil {
		return nil, fmt.Errorf("kafka-source: newest offset: %w", err)
	}
	entries := ledger.Entries{}
	if next <= oldest {
		return entries, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	pc, err := d.consumer.ConsumePartition(topic, part, oldest)
	if err != nil {
		return nil, err
	}
	defer pc.Close()

	log := logging.L().With(zap.String("topic", topic), zap.Int32("partition", part))
	log.Debug("kafka-source: reading", zap.Int64("from", oldest), zap.Int64("to", next))
	errs := pc.Errors()
	for {
		select {
		case msg, ok := <-pc.Messages():
			if !ok {
				return entries, errors.New("kafka-source: partition consumer closed early")
			}
			batch, err := ledger.Decode(bytes.NewReader(msg.Value))
			if err != nil {
				return entries, fmt.Errorf("kafka-source: offset %d: %w", msg.Offset, err)
			}
			entries = append(entries, batch...)
			if msg.Offset >= next-1 {
				log.Info("kafka-source: partition drained", zap.Int("entries", len(entries)))
				return entries, nil
			}
		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return entries, cerr
		case <-ctx.Done():
			return entries, fmt.Errorf("kafka-source: reading %s[%d]: %w", topic, part, ctx.Err())
		}
	}
}

func (d *SaramaDriver) Close() error {
	var err error
	if d.consumer != nil {
		err = multierr.Append(err, d.consumer.Close())
		d.consumer = nil
	}
	if d.cl != nil {
		err = multierr.Append(err, d.cl.Close())
		d.cl = nil
	}
	return err
}

func init() { source.Register("kafka", func() source.Adapter { return &SaramaDriver{} }) }
