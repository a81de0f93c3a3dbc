package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/resort-quote/internal/common"
)

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		Secret:    "test-secret",
		Issuer:    "resort-quote",
		Audience:  "agents",
		ClockSkew: time.Second,
		TokenTTL:  time.Hour,
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)

	token, expires, err := v.Issue(Agent{ID: "agent-7", Agency: "Blue Horizons"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expires)
	}
	agent, err := v.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if agent.ID != "agent-7" || agent.Agency != "Blue Horizons" {
		t.Fatalf("unexpected agent %#v", agent)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	token, _, err := newTestVerifier(t, now.Add(-2*time.Hour)).Issue(Agent{ID: "agent-7"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := newTestVerifier(t, now).Parse(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	now := time.Now()
	other, err := NewVerifier(Config{Secret: "other", Issuer: "resort-quote", Audience: "agents", Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, _, err := other.Issue(Agent{ID: "agent-7"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := newTestVerifier(t, now).Parse(token); err == nil || !common.IsAppError(err) {
		t.Fatalf("expected unauthorized app error, got %v", err)
	}
}

func TestTokenValidatorIssuerMismatch(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("other").
		Audience([]string{"agents"}).
		Subject("agent-7").
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()

	validator := TokenValidator{Issuer: "resort-quote", Audience: "agents", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestTokenValidatorRequiresSubjectAndExpiry(t *testing.T) {
	now := time.Now()
	noSubject, _ := jwt.NewBuilder().Issuer("resort-quote").Expiration(now.Add(time.Minute)).Build()
	noExpiry, _ := jwt.NewBuilder().Issuer("resort-quote").Subject("agent-7").Build()

	validator := TokenValidator{Issuer: "resort-quote", Algorithm: jwa.HS256}
	if err := validator.Validate(noSubject, jwa.HS256, now); err == nil {
		t.Fatal("expected missing subject error")
	}
	if err := validator.Validate(noExpiry, jwa.HS256, now); err == nil {
		t.Fatal("expected missing expiry error")
	}
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("resort-quote").
		Subject("agent-7").
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	validator := TokenValidator{Issuer: "resort-quote", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.RS256, now); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestRequireAgent(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)
	token, _, err := v.Issue(Agent{ID: "agent-7", Agency: "Blue Horizon Travel"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen common.AgentIdentity
	handler := Middleware{Verifier: v}.RequireAgent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.AgentFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", rr.Code)
	}
	if seen.ID != "agent-7" || seen.Agency != "Blue Horizon Travel" {
		t.Fatalf("expected agent on context, got %+v", seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "UNAUTHORIZED") {
		t.Fatalf("expected 401 for non-bearer scheme, got %d %s", rr.Code, rr.Body.String())
	}
}
