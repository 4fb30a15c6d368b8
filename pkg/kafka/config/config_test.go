package kafkaconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultProducerCompression, cfg.ProducerCompression)
}

func TestLoad_BrokerList(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, ,kafka-2:9092 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")
	t.Setenv(EnvKafkaConsumerStartOffset, "42")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProducerCompression")
	assert.Contains(t, err.Error(), "ProducerRequireAcks")
	assert.Contains(t, err.Error(), "ConsumerStartOffset")
}
