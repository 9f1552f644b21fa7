package reliability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/pkg/circuitbreaker"
	"notemesh/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyNoteRepository fails a configurable number of times before
// succeeding.
type flakyNoteRepository struct {
	mu        sync.Mutex
	failures  int
	callCount int
	note      *domain.Note
}

func (r *flakyNoteRepository) attempt() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callCount++
	if r.callCount <= r.failures {
		return errors.New("connection reset")
	}
	return nil
}

func (r *flakyNoteRepository) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callCount
}

func (r *flakyNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	return r.attempt()
}

func (r *flakyNoteRepository) GetByID(ctx context.Context, id domain.NoteID) (*domain.Note, error) {
	if err := r.attempt(); err != nil {
		return nil, err
	}
	if r.note == nil || r.note.ID != id {
		return nil, domain.ErrNoteNotFound
	}
	return r.note, nil
}

func (r *flakyNoteRepository) Update(ctx context.Context, note *domain.Note) error {
	return r.attempt()
}

func (r *flakyNoteRepository) Delete(ctx context.Context, id domain.NoteID) error {
	return r.attempt()
}

func (r *flakyNoteRepository) ListByOwner(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	if err := r.attempt(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *flakyNoteRepository) ListAll(ctx context.Context) ([]*domain.Note, error) {
	if err := r.attempt(); err != nil {
		return nil, err
	}
	return nil, nil
}

func fastRetryConfig() retry.Config {
	return retry.Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestNoteRepositoryWrapper_RetriesTransientFailures(t *testing.T) {
	repo := &flakyNoteRepository{failures: 2, note: &domain.Note{ID: "n1"}}
	wrapper := NewNoteRepositoryWrapper(repo, fastRetryConfig(), circuitbreaker.DefaultConfig(), zap.NewNop().Sugar())

	note, err := wrapper.GetByID(context.Background(), "n1")

	require.NoError(t, err)
	assert.Equal(t, domain.NoteID("n1"), note.ID)
	assert.Equal(t, 3, repo.calls())
}

func TestNoteRepositoryWrapper_NotFoundIsNotRetried(t *testing.T) {
	repo := &flakyNoteRepository{}
	wrapper := NewNoteRepositoryWrapper(repo, fastRetryConfig(), circuitbreaker.DefaultConfig(), zap.NewNop().Sugar())

	_, err := wrapper.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
	assert.Equal(t, 1, repo.calls())
}

func TestNoteRepositoryWrapper_ExhaustsAttempts(t *testing.T) {
	repo := &flakyNoteRepository{failures: 100}
	wrapper := NewNoteRepositoryWrapper(repo, fastRetryConfig(), circuitbreaker.DefaultConfig(), zap.NewNop().Sugar())

	err := wrapper.Create(context.Background(), &domain.Note{ID: "n1"})

	assert.Error(t, err)
	assert.Equal(t, 4, repo.calls())
}

func TestNoteRepositoryWrapper_BreakerOpensUnderSustainedFailure(t *testing.T) {
	repo := &flakyNoteRepository{failures: 1000}
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
	}
	retryConfig := fastRetryConfig()
	retryConfig.Enabled = false

	wrapper := NewNoteRepositoryWrapper(repo, retryConfig, cbConfig, zap.NewNop().Sugar())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, wrapper.Create(ctx, &domain.Note{ID: "n1"}))
	}
	calls := repo.calls()

	// The open breaker now short-circuits without touching the repository.
	assert.Error(t, wrapper.Create(ctx, &domain.Note{ID: "n1"}))
	assert.Equal(t, calls, repo.calls())
}

func TestNoteRepositoryWrapper_RetryDisabledCallsOnce(t *testing.T) {
	repo := &flakyNoteRepository{failures: 1}
	retryConfig := fastRetryConfig()
	retryConfig.Enabled = false

	wrapper := NewNoteRepositoryWrapper(repo, retryConfig, circuitbreaker.DefaultConfig(), zap.NewNop().Sugar())

	assert.Error(t, wrapper.Delete(context.Background(), "n1"))
	assert.Equal(t, 1, repo.calls())
}
