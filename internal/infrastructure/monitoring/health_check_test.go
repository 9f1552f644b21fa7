package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("store", func(ctx context.Context) error { return nil }, time.Second)
	checker.AddCheck("relay", func(ctx context.Context) error { return nil }, time.Second)

	status := checker.CheckAll(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["store"])
	assert.Equal(t, "healthy", status.Checks["relay"])
}

func TestHealthChecker_OneFailureMarksUnhealthy(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("store", func(ctx context.Context) error { return nil }, time.Second)
	checker.AddCheck("relay", func(ctx context.Context) error { return errors.New("connection refused") }, time.Second)

	status := checker.CheckAll(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["store"])
	assert.Equal(t, "connection refused", status.Checks["relay"])
}

func TestHealthChecker_CheckTimeout(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}, 20*time.Millisecond)

	status := checker.CheckAll(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
}

func TestHealthChecker_NoChecks(t *testing.T) {
	status := NewHealthChecker().CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
}
