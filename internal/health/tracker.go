// Package health tracks per-provider failure streaks and derives an
// advisory healthy/unhealthy flag for status reporting.
package health

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/marketdata-aggregator/internal/model"
)

// failureThreshold is the consecutive-failure count at which a provider
// is flagged unhealthy. Recovery is success-driven only; there is no
// time-based reset.
const failureThreshold = 3

// Tracker records consecutive successes and failures for one provider.
// The flag it derives is advisory: the aggregation engine still attempts
// an unhealthy provider on every call and uses the tracker purely for
// observability.
type Tracker struct {
	mu                  sync.Mutex
	name                string
	healthy             bool
	lastSuccess         time.Time
	lastFailure         time.Time
	consecutiveFailures int

	now func() time.Time
}

// NewTracker creates a tracker for the named provider, initially healthy.
func NewTracker(name string) *Tracker {
	return &Tracker{
		name:    name,
		healthy: true,
		now:     time.Now,
	}
}

// Success resets the failure streak and marks the provider healthy.
func (t *Tracker) Success() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.healthy {
		logrus.Infof("Provider %s recovered", t.name)
	}
	t.consecutiveFailures = 0
	t.healthy = true
	t.lastSuccess = t.now()
}

// Failure increments the failure streak and flips the provider unhealthy
// once the streak reaches the threshold.
func (t *Tracker) Failure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consecutiveFailures++
	t.lastFailure = t.now()
	if t.consecutiveFailures >= failureThreshold && t.healthy {
		t.healthy = false
		logrus.Warnf("Provider %s marked unhealthy after %d consecutive failures",
			t.name, t.consecutiveFailures)
	}
}

// Healthy reports the current advisory flag.
func (t *Tracker) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.healthy
}

// Status returns a point-in-time snapshot for status reporting.
func (t *Tracker) Status() model.ProviderStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return model.ProviderStatus{
		Name:                t.name,
		Healthy:             t.healthy,
		LastSuccess:         t.lastSuccess,
		LastFailure:         t.lastFailure,
		ConsecutiveFailures: t.consecutiveFailures,
	}
}
