package auth

import (
	"net/http"
	"strings"

	"github.com/noah-isme/resort-quote/internal/common"
	"github.com/noah-isme/resort-quote/internal/obs"
)

// Middleware authenticates travel agents on the quote endpoints.
type Middleware struct {
	Verifier *Verifier
}

// RequireAgent rejects requests without a valid agent bearer token and stores the agent on the context.
func (m Middleware) RequireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "agent verifier not configured", nil)
			return
		}
		agent, err := m.Verifier.Parse(bearerToken(r))
		if err != nil {
			common.WriteError(w, err)
			return
		}
		obs.RequestInfoFrom(r.Context()).SetAgent(agent.ID, agent.Agency)
		ctx := common.WithAgent(r.Context(), common.AgentIdentity{ID: agent.ID, Agency: agent.Agency})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
