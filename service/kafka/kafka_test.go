package kafka

import (
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTopicIsStable(t *testing.T) {
	cfg := DefaultConfig()
	topics := GenTopicsWithPattern(&cfg)
	require.Len(t, topics, 8)
	assert.Equal(t, "flashchat.notify-00", topics[0])

	first := SelectTopicByUser("user-42", topics)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SelectTopicByUser("user-42", topics))
	}
	assert.Equal(t, "", SelectTopicByUser("u", nil))
}

func TestBuildBaseConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProducerRetries = 0
	sc := BuildBaseConfig(&cfg)
	assert.Equal(t, sarama.CompressionSnappy, sc.Producer.Compression)
	assert.Equal(t, 1, sc.Producer.Retry.Max)
	assert.Equal(t, sarama.V2_1_0_0, sc.Version)
	assert.True(t, sc.Producer.Return.Successes)
}

func TestProducerSendUsesKeyTopic(t *testing.T) {
	cfg := DefaultConfig()
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndSucceed()

	p := NewProducerWith(cfg, nil, sp)
	topic, _, _, err := p.Send("user-7", []byte(`{"kind":"new_message"}`), map[string]string{"kind": "new_message"})
	require.NoError(t, err)
	assert.Equal(t, SelectTopicByUser("user-7", GenTopicsWithPattern(&cfg)), topic)
	require.NoError(t, p.Close())
}

func TestProducerSendError(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWith(DefaultConfig(), nil, sp)
	_, _, _, err := p.Send("u", nil, nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
