package kafka

import (
	"FlashChat/logger"
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// EnsureTopicsWith 不存在就按 appCfg 创建；已存在且分区数不足时扩分区（只能增不能减）
func EnsureTopicsWith(admin sarama.ClusterAdmin, topics []string, appCfg *AppConfig) error {
	for _, t := range topics {
		descs, err := admin.DescribeTopics([]string{t})
		if err != nil {
			return fmt.Errorf("describe topic %s: %w", t, err)
		}
		exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

		// 期望配置
		minISR := "1"
		if appCfg.ReplicationFactor >= 3 {
			minISR = "2" // 生产更安全：rf>=3 则至少 2
		}

		if !exists {
			td := &sarama.TopicDetail{
				NumPartitions:     appCfg.PartitionsPerTopic,
				ReplicationFactor: appCfg.ReplicationFactor,
				ConfigEntries: map[string]*string{
					"cleanup.policy":                 strPtr("delete"), // 历史按需保留；也可用 compact
					"min.insync.replicas":            strPtr(minISR),
					"unclean.leader.election.enable": strPtr("false"),
					"compression.type":               strPtr("producer"),
				},
			}
			if err := admin.CreateTopic(t, td, false); err != nil {
				// CreateTopic 可能返回 *sarama.TopicError 或通用 error
				var te *sarama.TopicError
				if errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists {
					logger.Info("[Topic] exists (race)", zap.String("topic", t))
					continue
				}
				// 兼容老写法
				if errors.Is(err, sarama.ErrTopicAlreadyExists) {
					logger.Info("[Topic] exists (race)", zap.String("topic", t))
					continue
				}
				return fmt.Errorf("create topic %s: %w", t, err)
			}
			logger.Info("[Topic] created", zap.String("topic", t), zap.Int32("partitions", appCfg.PartitionsPerTopic), zap.Int16("rf", appCfg.ReplicationFactor))
			continue
		}

		// 已存在：必要时扩分区
		curParts := int32(len(descs[0].Partitions))
		if appCfg.PartitionsPerTopic > curParts {
			err := admin.CreatePartitions(t, appCfg.PartitionsPerTopic, nil, false)
			if err != nil {
				return fmt.Errorf("expand partitions %s from %d to %d: %w", t, curParts, appCfg.PartitionsPerTopic, err)
			}
			logger.Info("[Topic] partitions expanded", zap.String("topic", t), zap.Int32("from", curParts), zap.Int32("to", appCfg.PartitionsPerTopic))
		} else {
			logger.Debug("[Topic] exists", zap.String("topic", t), zap.Int32("partitions", curParts))
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
