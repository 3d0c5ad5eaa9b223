package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Brokers   []string      `yaml:"brokers"`
	Topic     string        `yaml:"topic"`
	Partition int32         `yaml:"partition"`
	Version   string        `yaml:"version"`
	Timeout   time.Duration `yaml:"timeout"`
}

func applyDefaults(c *Config) {
	if c.Version == "" {
		c.Version = sarama.DefaultVersion.String()
	}
	if c.Timeout == 0 {
		c.Timeout = time.Minute
	}
}

func (c Config) sarama() (*sarama.Config, error) {
	ver, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return nil, err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.ClientID = "beanexport"
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	return sc, nil
}
