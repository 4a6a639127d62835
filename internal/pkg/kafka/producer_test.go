package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerWithoutBrokersUsesMock(t *testing.T) {
	p := NewProducer(nil, "drug-detections")

	_, ok := p.(*mockProducer)
	require.True(t, ok)
	assert.NoError(t, p.SendMessage(context.Background(), "id", map[string]string{"a": "b"}))
	assert.NoError(t, p.Close())
}

func TestNewProducerUnreachableBrokerUsesMock(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "drug-detections")

	_, ok := p.(*mockProducer)
	assert.True(t, ok)
}
