package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAppErrorIs(t *testing.T) {
	t.Parallel()

	sentinel := NewError(KindConflict, "slot unavailable")
	wrapped := fmt.Errorf("book: %w", &AppError{Kind: KindConflict, Message: "slot unavailable", Err: errors.New("row taken")})

	if !errors.Is(wrapped, sentinel) {
		t.Error("same kind and message should match")
	}
	if errors.Is(wrapped, NewError(KindNotFound, "slot unavailable")) {
		t.Error("different kind matched")
	}
	if KindOf(wrapped) != KindConflict {
		t.Errorf("KindOf = %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors should be internal")
	}
	if !IsKind(wrapped, KindConflict) || IsKind(nil, KindConflict) {
		t.Error("IsKind mismatch")
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := map[Kind]int{
		KindNotFound:          http.StatusNotFound,
		KindConflict:          http.StatusConflict,
		KindValidation:        http.StatusBadRequest,
		KindDependencyMissing: http.StatusFailedDependency,
		KindSimulation:        http.StatusUnprocessableEntity,
		KindSubmission:        http.StatusBadGateway,
		KindUnavailable:       http.StatusServiceUnavailable,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondError(c, WrapError(KindValidation, errors.New("bad digit"), "invalid price %q", "1.x"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindValidation || resp.Message != `invalid price "1.x"` || resp.Details != "bad digit" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestErrorHandlerRecovers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}
