package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{application.ErrInvalidEvent, http.StatusBadRequest},
		{application.ErrOwnEvent, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", application.ErrAlreadyRegistered), http.StatusBadRequest},
		{application.ErrInvalidCredentials, http.StatusUnauthorized},
		{application.ErrEventNotFound, http.StatusNotFound},
		{application.ErrAttendeesNotFound, http.StatusNotFound},
		{application.ErrNotRegistered, http.StatusNotFound},
		{application.ErrMailUnavailable, http.StatusServiceUnavailable},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/events", nil)

	writeError(c, helpers.NewDiscardLogger(), errors.New("pq: connection refused"), "Error retrieving events")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Error retrieving events" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestCallerFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("userID", "u1")
	c.Set("userName", "ada")
	c.Set("userEmail", "ada@example.com")
	if got := callerFrom(c); got != (application.Caller{ID: "u1", Username: "ada", Email: "ada@example.com"}) {
		t.Fatalf("unexpected caller %+v", got)
	}
}
