package kafka

import "github.com/Shopify/sarama"

// AppConfig Kafka 生产端配置
type AppConfig struct {
	Brokers                 []string `mapstructure:"brokers"`
	TopicPattern            string   `mapstructure:"topic_pattern"` // 例如 "flashchat.notify-%02d"
	TopicCount              int      `mapstructure:"topic_count"`
	PartitionsPerTopic      int32    `mapstructure:"partitions_per_topic"`
	ReplicationFactor       int16    `mapstructure:"replication_factor"` // 单机=1；生产=3
	ProducerRetries         int      `mapstructure:"producer_retries"`
	ProducerCompression     string   `mapstructure:"producer_compression"` // none/snappy/lz4/zstd
	Version                 string   `mapstructure:"version"`
	AutoCreateTopicsOnStart bool     `mapstructure:"auto_create_topics"`
}

// DefaultConfig 单机默认值
func DefaultConfig() AppConfig {
	return AppConfig{
		Brokers:                 []string{"127.0.0.1:9092"},
		TopicPattern:            "flashchat.notify-%02d",
		TopicCount:              8,
		PartitionsPerTopic:      8,
		ReplicationFactor:       1,
		ProducerRetries:         5,
		ProducerCompression:     "snappy",
		Version:                 "2.1.0",
		AutoCreateTopicsOnStart: true,
	}
}

func (c AppConfig) kafkaVersion() sarama.KafkaVersion {
	if c.Version == "" {
		return sarama.V2_1_0_0
	}
	v, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return sarama.V2_1_0_0
	}
	return v
}
