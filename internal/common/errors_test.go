package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Error
}

func TestWriteErrorKeepsAppErrorShape(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, ValidationFailed("request validation failed", nil).WithDetails([]string{"currency"}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	body := decodeError(t, rr)
	if body.Code != CodeValidationFailed {
		t.Fatalf("unexpected code %q", body.Code)
	}
	if details, ok := body.Details.([]any); !ok || len(details) != 1 {
		t.Fatalf("unexpected details %#v", body.Details)
	}
}

func TestWriteErrorReportsSyntaxOffset(t *testing.T) {
	var v map[string]any
	decodeErr := json.NewDecoder(strings.NewReader(`{"legs": [}`)).Decode(&v)

	rr := httptest.NewRecorder()
	WriteError(rr, BadRequest("invalid payload", decodeErr))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	details, ok := decodeError(t, rr).Details.(map[string]any)
	if !ok || details["offset"] == nil {
		t.Fatalf("expected offset details, got %#v", details)
	}
}

func TestWriteErrorMasksUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pgx: connection refused"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := decodeError(t, rr)
	if body.Code != CodeInternal || strings.Contains(body.Message, "pgx") {
		t.Fatalf("internal error leaked: %#v", body)
	}
}

func TestAppErrorUnwraps(t *testing.T) {
	cause := errors.New("redis: nil")
	err := RefdataUnavailable(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if StatusOf(err) != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", StatusOf(err))
	}
	if !IsAppError(err) || IsAppError(cause) {
		t.Fatalf("IsAppError mismatch")
	}
}
