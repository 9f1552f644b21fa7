package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             20 * time.Millisecond,
		MaxRequestsHalfOpen: 2,
	}
}

func TestClosedPassesThrough(t *testing.T) {
	cb := New(testConfig())

	err := cb.Execute(context.Background(), func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func() error { return boom })
	}
	assert.Equal(t, StateOpen, cb.State())

	// Open circuit rejects without calling fn
	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func() error { return boom })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(25 * time.Millisecond)

	// Two successes in half-open close the circuit
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func() error { return boom })
	}
	time.Sleep(25 * time.Millisecond)

	_ = cb.Execute(context.Background(), func() error { return boom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("boom")

	_ = cb.Execute(context.Background(), func() error { return boom })
	_ = cb.Execute(context.Background(), func() error { return boom })
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	_ = cb.Execute(context.Background(), func() error { return boom })
	_ = cb.Execute(context.Background(), func() error { return boom })

	assert.Equal(t, StateClosed, cb.State())
}

func TestExecuteWithResult(t *testing.T) {
	cb := New(testConfig())

	v, err := ExecuteWithResult(context.Background(), cb, func() (string, error) {
		return "Work", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Work", v)

	_, err = ExecuteWithResult(context.Background(), cb, func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func() error { return boom })
	}
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}
