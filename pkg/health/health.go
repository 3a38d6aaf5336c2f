// Package health aggregates dependency probes (Postgres, Redis, Kafka,
// embedding provider) into liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status of a component or the service overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Probe checks a single dependency. A nil error means the dependency is
// up; a non-nil error marks it down with the error as the message.
type Probe func(ctx context.Context) error

// Result is the outcome of one probe.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report aggregates all probe results.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Result `json:"components"`
	Timestamp  string            `json:"timestamp"`
}

// Checker runs registered probes concurrently.
type Checker struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

func NewChecker() *Checker {
	return &Checker{probes: make(map[string]Probe)}
}

// Register adds a named probe. Registering the same name twice replaces
// the earlier probe.
func (c *Checker) Register(name string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// Run executes all probes in parallel. The report status is down if any
// probe failed, up otherwise.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]Result, len(probes)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe Probe) {
			defer wg.Done()
			start := time.Now()
			err := probe(ctx)
			res := Result{Status: StatusUp, Latency: time.Since(start).Round(time.Millisecond).String()}
			if err != nil {
				res.Status = StatusDown
				res.Message = err.Error()
			}
			mu.Lock()
			report.Components[name] = res
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	for _, res := range report.Components {
		if res.Status == StatusDown {
			report.Status = StatusDown
			break
		}
	}
	return report
}

// LiveHandler answers liveness probes without touching dependencies.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler runs all probes and answers 503 unless everything is up.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status != StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
