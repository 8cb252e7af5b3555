package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

func BuildBaseConfig(c *AppConfig) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = c.kafkaVersion()
	cfg.ClientID = "flashchat"

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	retries := c.ProducerRetries
	if retries <= 0 {
		retries = 1
	}
	cfg.Producer.Retry.Max = retries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner // Key 控制分区
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// Producer 同步生产者，按用户选 Topic、按 key 分区
type Producer struct {
	cfg    AppConfig
	client sarama.Client
	sync   sarama.SyncProducer
	topics []string
}

// NewProducer 连接集群；AutoCreateTopicsOnStart 时先确保 Topic 存在
func NewProducer(cfg AppConfig) (*Producer, error) {
	client, err := sarama.NewClient(cfg.Brokers, BuildBaseConfig(&cfg))
	if err != nil {
		return nil, err
	}
	topics := GenTopicsWithPattern(&cfg)
	if cfg.AutoCreateTopicsOnStart {
		admin, err := sarama.NewClusterAdminFromClient(client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		// admin 与 client 共用连接，这里不能 Close admin
		if err := EnsureTopicsWith(admin, topics, &cfg); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	sp, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewProducerWith(cfg, client, sp), nil
}

// NewProducerWith 使用已有的 client 与生产者
func NewProducerWith(cfg AppConfig, client sarama.Client, sp sarama.SyncProducer) *Producer {
	return &Producer{cfg: cfg, client: client, sync: sp, topics: GenTopicsWithPattern(&cfg)}
}

// Send 同一个 key 落到同一 Topic 的同一分区
func (p *Producer) Send(key string, value []byte, headers map[string]string) (topic string, partition int32, offset int64, err error) {
	topic = SelectTopicByUser(key, p.topics)
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	partition, offset, err = p.sync.SendMessage(msg)
	return topic, partition, offset, err
}

func (p *Producer) Close() error {
	err := p.sync.Close()
	if p.client != nil && !p.client.Closed() {
		if cerr := p.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
