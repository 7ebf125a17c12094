package slack

import (
	"log"
	"sync"
	"time"

	"alertmon/internal/config"
	"alertmon/internal/metrics"
)

const (
	CLOSED    = 0
	OPEN      = 1
	HALF_OPEN = 2
)

// CircuitBreaker stops hammering the Slack API while it is failing. After
// FailureThreshold consecutive failures the breaker opens; once the timeout
// elapses it lets a probe through (half-open) and closes again on success.
type CircuitBreaker struct {
	state           int
	failureCount    int
	lastFailureTime time.Time
	config          config.CircuitBreakerConfig
	mutex           sync.Mutex
	metrics         *metrics.Metrics
}

func NewCircuitBreaker(configCB config.CircuitBreakerConfig, m *metrics.Metrics) *CircuitBreaker {

	log.Printf("Circuit breaker initialized: threshold=%d, timeout=%ds, half_open=%d",
		configCB.FailureThreshold,
		configCB.TimeoutDuration,
		configCB.HalfOpenMaxRequests)

	cb := &CircuitBreaker{
		state:   CLOSED,
		config:  configCB,
		metrics: m,
	}

	cb.setMetric(CLOSED)

	return cb
}

func (cb *CircuitBreaker) setMetric(state int) {
	if cb.metrics != nil {
		cb.metrics.SetCircuitBreakerState(float64(state))
	}
}

// allow reports whether a request may go out, moving OPEN to HALF_OPEN once
// the timeout has elapsed.
func (cb *CircuitBreaker) allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case CLOSED, HALF_OPEN:
		return true
	case OPEN:
		timeout := time.Duration(cb.config.TimeoutDuration) * time.Second
		if time.Since(cb.lastFailureTime) > timeout {
			cb.state = HALF_OPEN
			cb.setMetric(HALF_OPEN)
			log.Printf("Circuit breaker HALF_OPEN, letting a probe through")
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == CLOSED && cb.failureCount >= cb.config.FailureThreshold {
		cb.state = OPEN
		cb.setMetric(OPEN)
		log.Printf("Circuit breaker OPENED! Failures: %d (threshold: %d)",
			cb.failureCount, cb.config.FailureThreshold)
		return
	}

	if cb.state == HALF_OPEN {
		cb.state = OPEN
		cb.failureCount = cb.config.FailureThreshold
		cb.setMetric(OPEN)
		log.Printf("Circuit breaker reopened from HALF_OPEN state")
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount = 0

	if cb.state == HALF_OPEN {
		cb.state = CLOSED
		cb.setMetric(CLOSED)
		log.Printf("Circuit breaker CLOSED (recovered)")
	}
}

func (cb *CircuitBreaker) GetFailureCount() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failureCount
}

func (cb *CircuitBreaker) State() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
