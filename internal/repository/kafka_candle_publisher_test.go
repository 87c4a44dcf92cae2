package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"CandlePull/internal/domain/models"
	pkgkafka "CandlePull/pkg/kafka"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherKeysByTable(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaCandlePublisher(pkgkafka.NewProducerWithWriter(w, "candles"))

	err := p.PublishCandles(context.Background(), "BTCEUR_1h", []models.Candle{candleAt(t0, 1), candleAt(t0.Add(time.Hour), 2)})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "BTCEUR_1h", string(w.msgs[0].Key))
	var ev CandleEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &ev))
	assert.Equal(t, "BTCEUR_1h", ev.Table)
	assert.True(t, sameCandle(ev.Candle, candleAt(t0.Add(time.Hour), 2)))
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewKafkaCandlePublisher(pkgkafka.NewProducerWithWriter(w, "candles"))

	err := p.PublishCandles(context.Background(), "BTCEUR_1h", []models.Candle{candleAt(t0, 1)})
	assert.ErrorContains(t, err, "leader not available")
	assert.NoError(t, p.PublishCandles(context.Background(), "BTCEUR_1h", nil))
}
