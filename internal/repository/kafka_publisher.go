package repository

import (
	"context"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
	pkgkafka "HistPull/pkg/kafka"
)

// KafkaPublisher streams appended observations to a topic. Messages are keyed
// by source:symbol so one series always lands on one partition, in order.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) drepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

type observationEvent struct {
	Source string `json:"source"`
	Symbol string `json:"symbol"`
	models.Observation
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, source, symbol string, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	key := []byte(source + ":" + symbol)
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{
			Key:   key,
			Value: observationEvent{Source: source, Symbol: symbol, Observation: o},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
