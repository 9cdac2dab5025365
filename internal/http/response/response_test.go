package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"londa/internal/maps"
	"londa/internal/modules/location"
	"londa/internal/modules/ride"
	"londa/internal/modules/subscription"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"coordinate before validation", fmt.Errorf("pickup: %w", location.ErrInvalidCoordinate), http.StatusBadRequest, CodeInvalidCoordinate},
		{"validation", fmt.Errorf("%w: bad", ride.ErrBadRequest), http.StatusBadRequest, CodeValidation},
		{"transition", &ride.TransitionError{From: ride.StatusCompleted, Event: ride.EventComplete}, http.StatusConflict, CodeIllegalTransition},
		{"claimed", ride.ErrAlreadyClaimed, http.StatusConflict, CodeAlreadyClaimed},
		{"not assigned", ride.ErrNotAssigned, http.StatusConflict, CodeNotAssigned},
		{"owner", ride.ErrNotRideOwner, http.StatusForbidden, CodeForbidden},
		{"missing ride", ride.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"duplicate subscription", subscription.ErrConflict, http.StatusConflict, CodeConflict},
		{"contention", ride.ErrContention, http.StatusServiceUnavailable, CodeUpstreamUnavailable},
		{"maps down", fmt.Errorf("%w: timeout", maps.ErrUnavailable), http.StatusServiceUnavailable, CodeUpstreamUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			if status != tt.status || code != tt.code {
				t.Fatalf("Classify = %d %s, want %d %s", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestError_TransitionDetailsAndHiddenInternalText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/transition", func(c *gin.Context) {
		Error(c, &ride.TransitionError{From: ride.StatusCompleted, Event: ride.EventComplete})
	})
	r.GET("/internal", func(c *gin.Context) {
		Error(c, errors.New("secret connection string"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transition", nil))
	var body struct {
		Success bool      `json:"success"`
		Error   ErrorBody `json:"error"`
		Message string    `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusConflict || body.Success || body.Error.Code != CodeIllegalTransition {
		t.Fatalf("got %d %+v", w.Code, body)
	}
	if body.Error.Details["currentStatus"] != "completed" || body.Error.Details["event"] != "driver_complete" {
		t.Fatalf("details = %v", body.Error.Details)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusInternalServerError || body.Message != "internal error" {
		t.Fatalf("got %d %q", w.Code, body.Message)
	}
}
