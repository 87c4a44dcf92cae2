package repository

import (
	"context"
	"fmt"

	"CandlePull/internal/domain/models"
	domrepo "CandlePull/internal/domain/repository"
	pkgkafka "CandlePull/pkg/kafka"
)

// CandleEvent is the Kafka payload for one upserted candle.
type CandleEvent struct {
	Table  string        `json:"table"`
	Candle models.Candle `json:"candle"`
}

// KafkaCandlePublisher publishes upserted candles keyed by {symbol}_{interval}.
type KafkaCandlePublisher struct {
	producer *pkgkafka.Producer
}

var _ domrepo.Publisher = (*KafkaCandlePublisher)(nil)

func NewKafkaCandlePublisher(p *pkgkafka.Producer) *KafkaCandlePublisher {
	return &KafkaCandlePublisher{producer: p}
}

func (p *KafkaCandlePublisher) PublishCandles(ctx context.Context, table string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	key := []byte(table)
	msgs := make([]pkgkafka.Message, 0, len(candles))
	for _, c := range candles {
		msgs = append(msgs, pkgkafka.Message{Key: key, Value: CandleEvent{Table: table, Candle: c}})
	}
	if err := p.producer.PublishBatch(ctx, msgs); err != nil {
		return fmt.Errorf("publish %s to %s: %w", table, p.producer.Topic(), err)
	}
	return nil
}

func (p *KafkaCandlePublisher) Close() error {
	return p.producer.Close()
}
