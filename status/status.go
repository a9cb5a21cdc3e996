// Package status tracks the progress of a push and can expose it over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const maxRecentFailed = 10

// Tracker counts push calls as they start, complete or fail
type Tracker struct {
	startTime    time.Time
	total        atomic.Uint32
	completed    atomic.Uint32
	failed       atomic.Uint32
	active       sync.Map // map[string]time.Time - calls in flight
	activeCount  atomic.Int32
	mu           sync.RWMutex
	phase        string
	recentFailed []string // recent failures for debugging
}

// Status represents the JSON response for the status endpoint
type Status struct {
	StartTime    time.Time `json:"start_time"`
	Runtime      string    `json:"runtime"`
	Phase        string    `json:"phase"`
	Total        uint32    `json:"total"`
	Completed    uint32    `json:"completed"`
	Failed       uint32    `json:"failed"`
	Active       uint32    `json:"active"`
	Remaining    uint32    `json:"remaining"`
	SuccessRate  float64   `json:"success_rate"`
	CallRate     float64   `json:"calls_per_minute"`
	RecentFailed []string  `json:"recent_failed,omitempty"`
}

// HealthResponse represents the JSON response for health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// New creates a new tracker
func New() *Tracker {
	return &Tracker{
		startTime:    time.Now(),
		recentFailed: make([]string, 0),
	}
}

// SetPhase records which part of the plan is being pushed
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()
}

// AddTotal increases the number of expected calls
func (t *Tracker) AddTotal(change uint32) {
	t.total.Add(change)
}

// Start marks a call as in flight
func (t *Tracker) Start(key string) {
	if _, loaded := t.active.LoadOrStore(key, time.Now()); !loaded {
		t.activeCount.Add(1)
	}
}

// Complete marks a call as done
func (t *Tracker) Complete(key string) {
	// Only count calls that are still active (avoid double-counting)
	if _, exists := t.active.LoadAndDelete(key); exists {
		t.activeCount.Add(-1)
		t.completed.Add(1)
	}
}

// Fail marks a call as failed
func (t *Tracker) Fail(key string, reason string) {
	if _, exists := t.active.LoadAndDelete(key); exists {
		t.activeCount.Add(-1)
		t.failed.Add(1)

		// keep the last few failures
		t.mu.Lock()
		entry := key
		if reason != "" {
			entry += ": " + reason
		}
		t.recentFailed = append(t.recentFailed, entry)
		if len(t.recentFailed) > maxRecentFailed {
			t.recentFailed = t.recentFailed[1:]
		}
		t.mu.Unlock()
	}
}

// Failed returns the number of failed calls so far
func (t *Tracker) Failed() uint32 {
	return t.failed.Load()
}

// Snapshot returns current status information
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	recentFailed := make([]string, len(t.recentFailed))
	copy(recentFailed, t.recentFailed)
	phase := t.phase
	t.mu.RUnlock()

	completed := t.completed.Load()
	failed := t.failed.Load()
	active := uint32(max(t.activeCount.Load(), 0))
	total := t.total.Load()

	runtime := time.Since(t.startTime)
	remaining := uint32(0)
	if total > completed+failed {
		remaining = total - completed - failed
	}

	var successRate float64
	if completed+failed > 0 {
		successRate = math.Round(float64(completed)/float64(completed+failed)*100*100) / 100
	}

	var callRate float64
	if runtime.Minutes() > 0 {
		callRate = math.Round(float64(completed)/runtime.Minutes()*100) / 100
	}

	return Status{
		StartTime:    t.startTime,
		Runtime:      runtime.Round(time.Second).String(),
		Phase:        phase,
		Total:        total,
		Completed:    completed,
		Failed:       failed,
		Active:       active,
		Remaining:    remaining,
		SuccessRate:  successRate,
		CallRate:     callRate,
		RecentFailed: recentFailed,
	}
}

// HTTP Handlers

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (t *Tracker) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, t.Snapshot())
}

func (t *Tracker) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:  "ok",
		Message: "zonepush is running",
	})
}

func (t *Tracker) progressHandler(w http.ResponseWriter, r *http.Request) {
	status := t.Snapshot()

	attempted := status.Completed + status.Failed
	var percentage float64
	if status.Total > 0 {
		percentage = math.Round(float64(attempted)/float64(status.Total)*100*100) / 100
	}

	writeJSON(w, map[string]interface{}{
		"phase":      status.Phase,
		"completed":  status.Completed,
		"failed":     status.Failed,
		"attempted":  attempted,
		"total":      status.Total,
		"remaining":  status.Remaining,
		"active":     status.Active,
		"percentage": percentage,
	})
}

// Handler returns the status endpoints
func (t *Tracker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", t.statusHandler)
	mux.HandleFunc("/health", t.healthHandler)
	mux.HandleFunc("/progress", t.progressHandler)
	return mux
}

// Serve starts the HTTP status server on port in a separate goroutine.
// The server is shut down when ctx is done.
func (t *Tracker) Serve(ctx context.Context, port string, log logrus.FieldLogger) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", port))
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Status server starting on port %s", port)
		log.Debugf("  http://localhost:%s/status   - Full status information", port)
		log.Debugf("  http://localhost:%s/progress - Progress summary", port)
		log.Debugf("  http://localhost:%s/health   - Health check", port)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Status server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	return nil
}
