package obs

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

type requestInfoKey struct{}

// RequestInfo collects what inner handlers learn about a request (matched route, calling agent, quote
// outcome) so the outer logging, metrics and tracing middleware can report it after the handler returns.
// A nil *RequestInfo ignores writes.
type RequestInfo struct {
	mu            sync.Mutex
	route         string
	agentID       string
	agency        string
	calculationID string
	outcome       string
}

// WithRequestInfo returns ctx carrying a RequestInfo, reusing one that is already present.
func WithRequestInfo(ctx context.Context) (context.Context, *RequestInfo) {
	if info := RequestInfoFrom(ctx); info != nil {
		return ctx, info
	}
	info := &RequestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// RequestInfoFrom returns the RequestInfo on ctx or nil.
func RequestInfoFrom(ctx context.Context) *RequestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// SetRoute records the matched route pattern.
func (i *RequestInfo) SetRoute(pattern string) {
	if i == nil || pattern == "" {
		return
	}
	i.mu.Lock()
	i.route = pattern
	i.mu.Unlock()
}

// SetAgent records the authenticated agent.
func (i *RequestInfo) SetAgent(id, agency string) {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.agentID, i.agency = id, agency
	i.mu.Unlock()
}

// SetQuote records the calculation id and its outcome ("success" or "failure").
func (i *RequestInfo) SetQuote(calculationID, outcome string) {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.calculationID, i.outcome = calculationID, outcome
	i.mu.Unlock()
}

type requestFacts struct {
	route         string
	agentID       string
	agency        string
	calculationID string
	outcome       string
}

func (i *RequestInfo) facts() requestFacts {
	if i == nil {
		return requestFacts{}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return requestFacts{
		route:         i.route,
		agentID:       i.agentID,
		agency:        i.agency,
		calculationID: i.calculationID,
		outcome:       i.outcome,
	}
}

// RequestInfoMiddleware installs a RequestInfo and, once the router has matched, stores the full route
// pattern on it. It must run before the router dispatches.
func RequestInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, info := WithRequestInfo(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
		if rc := chi.RouteContext(ctx); rc != nil {
			info.SetRoute(rc.RoutePattern())
		}
	})
}

// routeOf resolves the route label for r: the recorded pattern, then chi's pattern, then fallback.
func routeOf(r *http.Request, fallback string) string {
	if route := RequestInfoFrom(r.Context()).facts().route; route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if route := rc.RoutePattern(); route != "" {
			return route
		}
	}
	return fallback
}
