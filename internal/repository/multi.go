package repository

import (
	"context"
	"errors"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
)

// MultiPublisher fans a batch out to every configured sink. All sinks see the
// batch even when one fails; the errors come back joined.
type MultiPublisher struct {
	sinks []drepo.Publisher
}

func NewMultiPublisher(sinks ...drepo.Publisher) drepo.Publisher {
	return &MultiPublisher{sinks: sinks}
}

func (m *MultiPublisher) PublishBatch(ctx context.Context, source, symbol string, obs []models.Observation) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.PublishBatch(ctx, source, symbol, obs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
