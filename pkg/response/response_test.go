package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("name", "required"), http.StatusBadRequest},
		{models.NotFoundError("train", 4), http.StatusNotFound},
		{fmt.Errorf("step: %w", models.ErrNotInitialized), http.StatusConflict},
		{&models.DataQualityError{TrainID: 1, Reason: "x"}, http.StatusUnprocessableEntity},
		{&models.StorageFailure{Op: "load", Err: errors.New("disk")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFromErrorHidesStorageDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "Failed to step", &models.StorageFailure{Op: "commit", Err: errors.New("secret path")})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "" || body.Message != "Failed to step" {
		t.Fatalf("body = %+v", body)
	}
}

func TestFromErrorKeepsValidationDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "Invalid train", models.NewValidationError("passenger_capacity", "below current load"))

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusBadRequest || body.Code != http.StatusBadRequest || body.Error == "" {
		t.Fatalf("status %d body %+v", w.Code, body)
	}
}
