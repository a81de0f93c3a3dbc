package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/resort-quote/internal/common"
)

const defaultCheckTimeout = 500 * time.Millisecond

var draining atomic.Bool

// SetReady toggles the process-wide readiness flag. The API clears it when shutdown starts so load
// balancers stop routing quotes before the listener closes.
func SetReady(v bool) {
	draining.Store(!v)
}

// Check probes one dependency.
type Check func(ctx context.Context) error

// Handler serves the liveness and readiness probes.
type Handler struct {
	// Checks maps a dependency name (db, redis, refdata) to its probe. Absent dependencies are omitted.
	Checks  map[string]Check
	Timeout time.Duration
}

// Live reports that the process is up.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently, each under its own timeout, and answers 503 when one fails or the
// server is draining. The body maps each dependency to "ok" or its error.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	var mu sync.Mutex
	status := make(map[string]string, len(h.Checks)+1)
	healthy := !draining.Load()
	if !healthy {
		status["server"] = "shutting down"
	}

	var g errgroup.Group
	for name, check := range h.Checks {
		if check == nil {
			continue
		}
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			err := check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status[name] = err.Error()
				healthy = false
				return nil
			}
			status[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}
