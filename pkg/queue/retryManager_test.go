package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestShouldRetryExhaustedAttempts тестирует остановку после исчерпания попыток
func TestShouldRetryExhaustedAttempts(t *testing.T) {
	manager := NewRetryManager(3, time.Second)
	task := &Task{ID: "t1", Attempts: 3, MaxRetries: 3}

	retry, _ := manager.ShouldRetry(task, errors.New("connection refused"))

	assert.False(t, retry)
}

// TestShouldRetryNonRetryableErrors тестирует ошибки, при которых повтор бессмысленен
func TestShouldRetryNonRetryableErrors(t *testing.T) {
	manager := NewRetryManager(3, time.Second)

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "transient network error", err: errors.New("connection refused"), retryable: true},
		{name: "timeout", err: errors.New("context deadline exceeded"), retryable: true},
		{name: "invalid payload", err: errors.New("invalid task data"), retryable: false},
		{name: "missing entity", err: errors.New("party not found"), retryable: false},
		{name: "unauthorized", err: errors.New("unauthorized request"), retryable: false},
		{name: "duplicate", err: errors.New("duplicate transaction"), retryable: false},
		{name: "validation", err: errors.New("validation failed: empty user_id"), retryable: false},
		{name: "nil error", err: nil, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{ID: "t1", Attempts: 0, MaxRetries: 3}
			retry, _ := manager.ShouldRetry(task, tt.err)
			assert.Equal(t, tt.retryable, retry)
		})
	}
}

// TestBackoffGrowsAndStaysCapped тестирует экспоненциальный рост задержки
// с джиттером и верхней границей
func TestBackoffGrowsAndStaysCapped(t *testing.T) {
	base := time.Second
	manager := NewRetryManager(10, base)

	// Первая попытка всегда базовая задержка
	assert.Equal(t, base, manager.calculateBackoff(0))

	// Джиттер ±25% не выводит задержку за пределы (0.5x, 1.5x)
	for attempt := 1; attempt <= 4; attempt++ {
		expected := base * time.Duration(1<<(attempt-1))
		delay := manager.calculateBackoff(attempt)
		assert.Greater(t, delay, expected/2)
		assert.Less(t, delay, expected*3/2)
	}

	// Большие номера попыток упираются в потолок 16x
	delay := manager.calculateBackoff(20)
	assert.LessOrEqual(t, delay, base*16)
}
