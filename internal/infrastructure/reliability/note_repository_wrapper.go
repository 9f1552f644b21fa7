package reliability

import (
	"context"
	"errors"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/pkg/circuitbreaker"
	"notemesh/pkg/retry"

	"go.uber.org/zap"
)

// NoteRepositoryWrapper wraps a NoteRepository with retry logic and a
// circuit breaker. It exists for networked backends; wrapping the memory
// repository is harmless but pointless. Not-found and policy errors pass
// through untouched and are never retried.
type NoteRepositoryWrapper struct {
	repo   ports.NoteRepository
	logger *zap.SugaredLogger

	retryConfig retry.Config
	breaker     *circuitbreaker.CircuitBreaker
}

func NewNoteRepositoryWrapper(
	repo ports.NoteRepository,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *NoteRepositoryWrapper {
	retryConfig.NonRetryableErrors = append(retryConfig.NonRetryableErrors,
		domain.ErrNoteNotFound,
	)

	wrapper := &NoteRepositoryWrapper{
		repo:        repo,
		logger:      logger,
		retryConfig: retryConfig,
		breaker:     circuitbreaker.New(cbConfig),
	}

	wrapper.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("note repository circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

func (w *NoteRepositoryWrapper) execute(ctx context.Context, fn func() error) error {
	if !w.retryConfig.Enabled {
		return w.breaker.Execute(ctx, fn)
	}
	return retry.Retry(ctx, w.retryConfig, func() error {
		return w.breaker.Execute(ctx, fn)
	})
}

func (w *NoteRepositoryWrapper) Create(ctx context.Context, note *domain.Note) error {
	return w.execute(ctx, func() error {
		return w.repo.Create(ctx, note)
	})
}

func (w *NoteRepositoryWrapper) GetByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	var note *domain.Note
	err := w.execute(ctx, func() error {
		var innerErr error
		note, innerErr = w.repo.GetByID(ctx, id)
		return innerErr
	})
	if err != nil && !errors.Is(err, domain.ErrNoteNotFound) {
		w.logger.Debugw("note lookup failed after retries", "note_id", id, "error", err)
	}
	return note, err
}

func (w *NoteRepositoryWrapper) Update(ctx context.Context, note *domain.Note) error {
	return w.execute(ctx, func() error {
		return w.repo.Update(ctx, note)
	})
}

func (w *NoteRepositoryWrapper) Delete(ctx context.Context, id domain.NoteID) error {
	return w.execute(ctx, func() error {
		return w.repo.Delete(ctx, id)
	})
}

func (w *NoteRepositoryWrapper) ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	var notes []*domain.Note
	err := w.execute(ctx, func() error {
		var innerErr error
		notes, innerErr = w.repo.ListByOwner(ctx, owner)
		return innerErr
	})
	return notes, err
}

func (w *NoteRepositoryWrapper) ListAll(ctx context.Context) ([]*domain.Note, error) {
	var notes []*domain.Note
	err := w.execute(ctx, func() error {
		var innerErr error
		notes, innerErr = w.repo.ListAll(ctx)
		return innerErr
	})
	return notes, err
}
